package ui

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

var menuItems = []string{
	"Save state",
	"Load state",
	"Next slot",
	"Reset",
	"Toggle trace",
	"Close",
}

func (a *App) updateMenu() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
		a.menuIdx--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < len(menuItems)-1 {
		a.menuIdx++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		switch a.menuIdx {
		case 0:
			a.saveSlot()
		case 1:
			a.loadSlot()
		case 2:
			a.currentSlot = (a.currentSlot + 1) % 4
		case 3:
			if err := a.m.Reset(); err != nil {
				a.toast("Reset failed: " + err.Error())
			}
		case 4:
			on := !a.m.Config().Trace
			a.m.SetTrace(on)
			if on {
				a.toast("Trace on")
			} else {
				a.toast("Trace off")
			}
		case 5:
			a.showMenu = false
		}
	}
	// Back with Backspace
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		a.showMenu = false
	}
}

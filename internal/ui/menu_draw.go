package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

func (a *App) drawMenu(screen *ebiten.Image) {
	if a.overlay == nil {
		a.overlay = ebiten.NewImage(screenW, screenH)
		a.overlay.Fill(color.RGBA{0, 0, 0, 0xC0})
	}
	screen.DrawImage(a.overlay, nil)

	lines := []string{fmt.Sprintf("Menu (slot %d):", a.currentSlot+1)}
	for _, item := range menuItems {
		lines = append(lines, "  "+item)
	}
	for i, s := range lines {
		prefix := "  "
		if i == a.menuIdx+1 {
			prefix = "> "
		}
		ebitenutil.DebugPrintAt(screen, prefix+s, 40, 40+i*lineHeight)
	}
	hint := "F1: Run/Pause  F2: Step  F3: Reset  F5: Save  F9: Load  Esc: Close"
	ebitenutil.DebugPrintAt(screen, hint, 40, 40+(len(lines)+1)*lineHeight)
}

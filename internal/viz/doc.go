// Package viz renders runs in the terminal: line charts through asciigraph,
// styled tables and text through lipgloss, and phase portraits on a braille
// [Canvas] where every character cell holds 2x4 dots.
package viz

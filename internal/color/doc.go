// Package color holds the terminal palette shared by assertion output,
// debug echo and the run reporter.
//
// Styles use lipgloss adaptive colors, so the same palette reads on dark
// and light terminals. lipgloss detects the terminal's color profile and
// honours NO_COLOR; RLTEST_THEME forces the dark or light variant when
// background detection guesses wrong.
//
//	fmt.Println(color.Pass.Render("✅  (OK):"))
//	fmt.Println(color.Fail.Render("❌  (FAIL):"))
package color

package common

import "github.com/ternarybob/banner"

// PrintBanner displays the application banner.
func PrintBanner(version string) {
	b := banner.New().SetStyle(banner.StyleDouble).SetWidth(60).SetBold(true)
	b.PrintTopLine()
	b.PrintCenteredText("DAYBREAK")
	b.PrintCenteredText("Pre-market briefing generator")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 10)
	b.PrintBottomLine()
}

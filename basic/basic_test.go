/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package basic

import (
	"testing"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestGetPercentString(t *testing.T) {
	cases := []struct {
		v1, v2 int
		want   string
	}{
		{0, 0, "0%"},
		{1, 4, "25%"},
		{3, 3, "100%"},
		{0, 5, "0%"},
	}
	for _, c := range cases {
		if got := GetPercentString(c.v1, c.v2); got != c.want {
			t.Errorf("GetPercentString(%d, %d) = %q, want %q", c.v1, c.v2, got, c.want)
		}
	}
}

func TestFormatTimeDuration(t *testing.T) {
	if got := FormatTimeDuration(3 * time.Second); got != "3s" {
		t.Errorf("FormatTimeDuration(3s) = %q, want 3s", got)
	}
}

func TestCheckingProcessPrinterTracksProgress(t *testing.T) {
	printer := NewCheckingProcessPrinter(2)
	msgPrinter := message.NewPrinter(language.English)

	printer.StartAnalyzeTask("loading", msgPrinter)
	printer.FinishAnalyzeTask("loading", msgPrinter)
	if got := printer.GetPercentString(); got != "50%" {
		t.Errorf("GetPercentString() after 1/2 stages = %q, want 50%%", got)
	}

	printer.StartAnalyzeTask("assembling", msgPrinter)
	printer.FinishAnalyzeTask("assembling", msgPrinter)
	if got := printer.GetPercentString(); got != "100%" {
		t.Errorf("GetPercentString() after 2/2 stages = %q, want 100%%", got)
	}
}

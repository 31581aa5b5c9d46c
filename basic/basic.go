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

/*
This package should not import any packages of other analyzers to
avoid recursive import.
*/
package basic

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/text/message"
)

func PrintfWithTimeStamp(format string, arg ...any) {
	prefix := fmt.Sprintf("%v ", time.Now().Format("2006-01-02 15:04:05"))
	message := fmt.Sprintf(prefix+format, arg...)
	fmt.Println(message)
	glog.Info(message)
}

func GetPercentString(v1, v2 int) string {
	if v2 == 0 {
		return "0%"
	}
	percent := (v1 * 100) / v2
	return fmt.Sprintf("%d%%", percent)
}

func FormatTimeDuration(d time.Duration) string {
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	if ms == 0 {
		return fmt.Sprintf("%ds", s)
	}
	ms = ms % time.Microsecond
	for ms%10 == 0 && ms != 0 {
		ms = ms / 10
	}
	return fmt.Sprintf("%d.%ds", s, ms)
}

// CheckingProcessPrinter prints the pipeline's stage-by-stage progress,
// serialized so concurrent fragment-loading or propagation goroutines can
// all report through it safely.
type CheckingProcessPrinter struct {
	mutex                sync.Mutex
	startedAt            time.Time
	timeElapsed          map[string]time.Time
	startAnalyzeTaskNum  int
	finishAnalyzeTaskNum int
	totalTaskNum         int
}

func NewCheckingProcessPrinter(totalTaskNum int) CheckingProcessPrinter {
	return CheckingProcessPrinter{
		totalTaskNum: totalTaskNum,
		timeElapsed:  make(map[string]time.Time),
		startedAt:    time.Now(),
	}
}

// StartAnalyzeTask is called before starting one named stage of the pipeline.
func (c *CheckingProcessPrinter) StartAnalyzeTask(stageName string, printer *message.Printer) {
	c.mutex.Lock()
	c.startAnalyzeTaskNum++
	PrintfWithTimeStamp(printer.Sprintf("Start %s (%v/%v)", stageName, c.startAnalyzeTaskNum, c.totalTaskNum))
	c.timeElapsed[stageName] = time.Now()
	c.mutex.Unlock()
}

// FinishAnalyzeTask is called after one named stage of the pipeline completes.
func (c *CheckingProcessPrinter) FinishAnalyzeTask(stageName string, printer *message.Printer) {
	c.mutex.Lock()
	elapsed := time.Since(c.timeElapsed[stageName])
	c.finishAnalyzeTaskNum++
	percent := GetPercentString(c.finishAnalyzeTaskNum, c.totalTaskNum)
	currentFinishedNumber := c.finishAnalyzeTaskNum
	totalStageNumber := c.totalTaskNum
	timeUsed := FormatTimeDuration(elapsed)
	PrintfWithTimeStamp(printer.Sprintf("%s completed (%s, %v/%v) [%s]", stageName, percent, currentFinishedNumber, totalStageNumber, timeUsed))
	c.mutex.Unlock()
}

func (c *CheckingProcessPrinter) GetPercentString() string {
	return GetPercentString(c.finishAnalyzeTaskNum, c.totalTaskNum)
}

func (c *CheckingProcessPrinter) GetStartedAt() time.Time {
	return c.startedAt
}

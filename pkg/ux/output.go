// Copyright 2022-2023 Protocol Labs
// SPDX-License-Identifier: MIT
package ux

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

var Logger *UserLog

// UserLog mirrors messages to the user's terminal and to the app log.
type UserLog struct {
	log    *zap.SugaredLogger
	writer io.Writer
}

func NewUserLog(log *zap.SugaredLogger, userwriter io.Writer) {
	if Logger == nil {
		Logger = &UserLog{
			log:    log,
			writer: userwriter,
		}
	}
}

// PrintToUser prints a formatted message to the user and echoes it into the
// log file.
func (ul *UserLog) PrintToUser(msg string, args ...interface{}) {
	formatted := fmt.Sprintf(msg, args...)
	if ul == nil {
		fmt.Fprintln(os.Stdout, formatted)
		return
	}
	fmt.Fprintln(ul.writer, formatted)
	ul.log.Info(formatted)
}

func FormatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}

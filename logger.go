package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logFile *os.File
var logPath = "/var/javadebugger.log"

func SetupLogger() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// 打开文件，日志同时输出到文件和标准输出
	// 打不开文件时只输出到标准输出
	var err error
	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, os.ModePerm)
	if err != nil {
		logrus.Warnf("open log file fail, err = %v", err)
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))
}

func CloseLogger() {
	if logFile != nil {
		_ = logFile.Close()
	}
}

package main

import (
	"flag"
	"fmt"

	"github.com/fansqz/java-debugger/config"
	"github.com/fansqz/java-debugger/debugger/java_debugger"
	"github.com/sirupsen/logrus"
)

// 定义版本号
const Version = "1.0.1"

func main() {
	//启动日志
	SetupLogger()
	defer CloseLogger()

	showVersion := flag.Bool("version", false, "Show the version number")
	port := flag.Int("port", 0, "HTTP port to listen on, overrides config")
	configPath := flag.String("config", "", "Config file path")
	flag.Parse()

	// 检查是否需要显示版本信息
	if *showVersion {
		fmt.Printf("Version: %s\n", Version)
		return
	}

	// 加载配置，没有指定配置文件时使用默认配置
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Printf("load config fail, err = %v\n", err)
			return
		}
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// 启动调试服务
	debug := java_debugger.NewJavaDebugger(cfg)
	server := NewServer()
	server.handler = NewDebuggerHandler(debug, server)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("started listening at: %s\n", addr)
	if err := server.Run(addr); err != nil {
		logrus.Errorf("server exit, err = %v", err)
	}
}

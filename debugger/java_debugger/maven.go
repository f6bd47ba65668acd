package java_debugger

import (
	"bufio"
	"context"
	"os/exec"
	"path/filepath"

	"github.com/fansqz/java-debugger/utils/gosync"
	"github.com/sirupsen/logrus"
)

// Builder 构建协作方
// 对引擎来说构建是一个不透明命令：返回退出码，日志按行流式回调
type Builder interface {
	Build(ctx context.Context, projectDir string, logCallback func(string)) (int, error)
}

// MavenBuilder 调用mvn进行构建
// dependency:copy-dependencies会把依赖复制到target/dependency，供启动时拼classpath
type MavenBuilder struct {
	mavenHome string
}

func NewMavenBuilder(mavenHome string) *MavenBuilder {
	return &MavenBuilder{mavenHome: mavenHome}
}

func (m *MavenBuilder) Build(ctx context.Context, projectDir string, logCallback func(string)) (int, error) {
	mvn := "mvn"
	if m.mavenHome != "" {
		mvn = filepath.Join(m.mavenHome, "bin", "mvn")
	}
	cmd := exec.CommandContext(ctx, mvn, "clean", "install", "dependency:copy-dependencies", "-U")
	cmd.Dir = projectDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, err
	}
	logrus.Infof("[Build] 执行构建命令: %s", cmd.String())
	if err = cmd.Start(); err != nil {
		return -1, err
	}

	done := make(chan struct{}, 2)
	forward := func(ctx context.Context, scanner *bufio.Scanner) {
		for scanner.Scan() {
			logCallback(scanner.Text())
		}
		done <- struct{}{}
	}
	gosync.Go(ctx, func(ctx context.Context) { forward(ctx, bufio.NewScanner(stdout)) })
	gosync.Go(ctx, func(ctx context.Context) { forward(ctx, bufio.NewScanner(stderr)) })

	// 先等两个读流协程结束再Wait，避免丢日志
	<-done
	<-done
	if err = cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

package java_debugger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fansqz/java-debugger/config"
	"github.com/fansqz/java-debugger/utils/gosync"
	"github.com/sirupsen/logrus"
)

const (
	// JDWPPort 调试代理监听的固定端口
	// 端口不做动态分配，同一时间系统内只允许附加一个被调试进程
	JDWPPort = 5005

	// readyMarker 调试代理就绪的标志日志
	readyMarker = "Listening for transport dt_socket"

	// LaunchReadyTimeout 等待调试代理就绪的上限
	LaunchReadyTimeout = 90 * time.Second

	defaultJavaVersion = "17"
)

// launchedProcess 启动成功的被调试进程
type launchedProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// processLauncher 负责构建被调试进程的命令行并等待调试代理就绪
type processLauncher struct {
	settings *config.Config
	// runLog 被调试进程每行输出的回调
	runLog func(string)
	// buildLog 启动阶段的提示信息回调
	buildLog func(string)
}

func newProcessLauncher(settings *config.Config, runLog, buildLog func(string)) *processLauncher {
	return &processLauncher{settings: settings, runLog: runLog, buildLog: buildLog}
}

// Launch 启动被调试进程并等待其进入调试等待状态
// 两个后台协程分别读取stdout和stderr，任意一个观察到就绪标志即完成
// 进程在标志出现前退出、或超时，都会返回错误，进程由本方法负责杀掉
func (l *processLauncher) Launch(ctx context.Context, projectDir, mainClass string) (*launchedProcess, error) {
	javaExecutable := l.selectJavaExecutable(projectDir)
	classpath, err := buildClasspath(projectDir)
	if err != nil {
		return nil, err
	}

	jdwpConfig := fmt.Sprintf("-agentlib:jdwp=transport=dt_socket,server=y,suspend=y,address=%d", JDWPPort)
	cmd := exec.CommandContext(ctx, javaExecutable, jdwpConfig, "-cp", classpath, mainClass)
	cmd.Dir = projectDir
	logrus.Infof("[Launch] 执行调试命令: %s", cmd.String())

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, err
	}

	ready := make(chan struct{})
	var readyOnce sync.Once
	var wg sync.WaitGroup
	exited := make(chan struct{})

	redirect := func(stream io.Reader, prefix string) {
		defer wg.Done()
		scanner := bufio.NewScanner(stream)
		for scanner.Scan() {
			line := scanner.Text()
			l.runLog(fmt.Sprintf("[%s] %s", prefix, line))
			if strings.Contains(line, readyMarker) {
				logrus.Infof("[Launch] 检测到JDWP监听日志，准备附加调试器")
				readyOnce.Do(func() { close(ready) })
			}
		}
	}
	wg.Add(2)
	gosync.Go(ctx, func(ctx context.Context) { redirect(stdout, "信息") })
	gosync.Go(ctx, func(ctx context.Context) { redirect(stderr, "错误") })
	gosync.Go(ctx, func(ctx context.Context) {
		wg.Wait()
		close(exited)
	})

	select {
	case <-ready:
		return &launchedProcess{cmd: cmd, stdin: stdin}, nil
	case <-exited:
		// 输出流全部关闭但没见到就绪标志，说明进程提前退出了
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("进程意外终止，未能进入调试模式，请检查日志输出")
	case <-time.After(LaunchReadyTimeout):
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("等待调试代理就绪超时（%s）", LaunchReadyTimeout)
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return nil, ctx.Err()
	}
}

// selectJavaExecutable 根据pom中的版本选择java可执行文件
// 未配置对应版本时降级到PATH中的java并给出警告
func (l *processLauncher) selectJavaExecutable(projectDir string) string {
	version := javaVersionFromPom(projectDir, l.buildLog)
	if executable := l.settings.ResolveJavaExecutable(version); executable != "" {
		l.buildLog(fmt.Sprintf("信息: 使用配置的 JDK %s: %s", version, executable))
		return executable
	}
	warning := fmt.Sprintf("[警告] 未配置 JDK %s 的路径，将使用系统默认的 java。", version)
	logrus.Warn(warning)
	l.buildLog(warning)
	return "java"
}

var (
	javaVersionPattern    = regexp.MustCompile(`<java\.version>\s*([^<\s]+)\s*</java\.version>`)
	compilerSourcePattern = regexp.MustCompile(`<maven\.compiler\.(?:source|release)>\s*([^<\s]+)\s*</maven\.compiler\.(?:source|release)>`)
)

// javaVersionFromPom 从pom.xml中解析java版本
// 找不到pom或版本声明时默认使用17
func javaVersionFromPom(projectDir string, logCallback func(string)) string {
	data, err := os.ReadFile(filepath.Join(projectDir, "pom.xml"))
	if err != nil {
		logCallback(fmt.Sprintf("信息: 未找到 pom.xml，将默认使用 JDK %s。", defaultJavaVersion))
		return defaultJavaVersion
	}
	if m := javaVersionPattern.FindSubmatch(data); m != nil {
		return normalizeJavaVersion(string(m[1]))
	}
	if m := compilerSourcePattern.FindSubmatch(data); m != nil {
		return normalizeJavaVersion(string(m[1]))
	}
	logCallback(fmt.Sprintf("信息: pom.xml 中未指定 Java 版本，将默认使用 JDK %s。", defaultJavaVersion))
	return defaultJavaVersion
}

// normalizeJavaVersion 1.8这类老版本号规范化为8
func normalizeJavaVersion(version string) string {
	return strings.TrimPrefix(version, "1.")
}

// buildClasspath 拼接被调试进程的classpath
// target/classes加上target/dependency下的全部jar
func buildClasspath(projectDir string) (string, error) {
	classesDir := filepath.Join(projectDir, "target", "classes")
	if info, err := os.Stat(classesDir); err != nil || !info.IsDir() {
		return "", fmt.Errorf("未找到编译输出目录 'target/classes'，请确认构建是否成功")
	}
	entries := []string{classesDir}

	dependencyDir := filepath.Join(projectDir, "target", "dependency")
	if info, err := os.Stat(dependencyDir); err == nil && info.IsDir() {
		err = filepath.WalkDir(dependencyDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".jar") {
				entries = append(entries, path)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
	}
	return strings.Join(entries, string(os.PathListSeparator)), nil
}

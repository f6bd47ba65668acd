package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 调试服务的环境配置
// 配置是只读的，调试过程中不会被修改
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	MavenHome string            `yaml:"mavenHome"`
	// JdkPaths 存储多个JDK版本的路径
	// key是jdk标识符，如"jdk8"、"jdk17"，value是java可执行文件的绝对路径
	JdkPaths map[string]string `yaml:"jdkPaths"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type WorkspaceConfig struct {
	// Root 工作区根目录，所有项目都存放在该目录下
	Root string `yaml:"root"`
}

func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8890,
		},
		Workspace: WorkspaceConfig{
			Root: "./workspace",
		},
		JdkPaths: map[string]string{},
	}
}

// ResolveJavaExecutable 根据版本选择java可执行文件
// 未配置对应版本时返回空串，由调用方降级到PATH中的java
func (c *Config) ResolveJavaExecutable(versionHint string) string {
	if c.JdkPaths == nil {
		return ""
	}
	version := strings.TrimPrefix(versionHint, "jdk")
	if p, ok := c.JdkPaths["jdk"+version]; ok && p != "" {
		return p
	}
	if p, ok := c.JdkPaths[version]; ok && p != "" {
		return p
	}
	return ""
}

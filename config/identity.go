package config

import (
	"errors"
	"os"
	"os/user"
)

// IdentityConfig 身份配置
//
// 每个出站数据包的头部都携带 user / hostname，
// 对端据此在节点目录中展示来源。
type IdentityConfig struct {
	// Username 用户名，默认取当前系统用户
	Username string `json:"username,omitempty"`

	// Hostname 主机名，默认取系统主机名
	Hostname string `json:"hostname,omitempty"`

	// KeyBits RSA 密钥位数，最小 1024
	KeyBits int `json:"key_bits"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		Username: currentUsername(),
		Hostname: currentHostname(),
		KeyBits:  1024,
	}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.Username == "" {
		return errors.New("identity: username is empty")
	}
	if c.Hostname == "" {
		return errors.New("identity: hostname is empty")
	}
	if c.KeyBits < 1024 {
		return errors.New("identity: key bits must be at least 1024")
	}
	if c.KeyBits > 8192 {
		return errors.New("identity: key bits must not exceed 8192")
	}
	return nil
}

// WithUsername 设置用户名
func (c IdentityConfig) WithUsername(name string) IdentityConfig {
	c.Username = name
	return c
}

// WithHostname 设置主机名
func (c IdentityConfig) WithHostname(name string) IdentityConfig {
	c.Hostname = name
	return c
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "anonymous"
}

func currentHostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}

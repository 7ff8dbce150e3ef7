package main

import (
	"github.com/bRuttaZz/stmp/config"
)

// buildConfig 合并配置文件与命令行参数
//
// 优先级：命令行参数 > 配置文件 > 默认值。
func buildConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	var opts []config.ConfigOption
	if *user != "" {
		opts = append(opts, config.WithUsername(*user))
	}
	if *group != "" {
		opts = append(opts, config.WithMulticastGroup(*group))
	}
	if *udpPort != 0 || *tcpPort != 0 {
		u, t := cfg.Network.UDPPort, cfg.Network.TCPPort
		if *udpPort != 0 {
			u = *udpPort
		}
		if *tcpPort != 0 {
			t = *tcpPort
		}
		opts = append(opts, config.WithPorts(u, t))
	}
	if *metricsAddr != "" {
		opts = append(opts, config.WithMetrics(true))
	}

	cfg.Apply(opts...)
	return cfg, cfg.Validate()
}

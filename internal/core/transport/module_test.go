package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/bRuttaZz/stmp/config"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
	"github.com/bRuttaZz/stmp/pkg/types"
)

// TestConfigFromUnified 测试配置转换
func TestConfigFromUnified(t *testing.T) {
	cfg := config.NewConfig().Apply(config.WithPorts(6000, 6001))

	u := UDPConfigFromUnified(cfg)
	assert.Equal(t, config.DefaultMulticastGroup, u.Group)
	assert.Equal(t, 6000, u.Port)
	assert.Equal(t, config.DefaultMulticastTTL, u.TTL)
	assert.True(t, u.Loopback)

	tc := TCPConfigFromUnified(cfg)
	assert.Equal(t, 6001, tc.Port)
	assert.Equal(t, config.DefaultTCPTimeout, tc.Timeout)
	assert.Equal(t, config.DefaultBacklog, tc.Backlog)

	assert.Equal(t, config.DefaultUDPPort, UDPConfigFromUnified(nil).Port)
}

// TestModule 测试 fx 注入
func TestModule(t *testing.T) {
	var in struct {
		fx.In
		UDP pkgif.Transport `name:"udp"`
		TCP pkgif.Transport `name:"tcp"`
	}

	app := fxtest.New(t,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&in),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, types.ProtocolUDP, in.UDP.Protocol())
	assert.Equal(t, types.ProtocolTCP, in.TCP.Protocol())
}

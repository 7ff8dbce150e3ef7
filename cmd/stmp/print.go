package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/bRuttaZz/stmp"
	"github.com/bRuttaZz/stmp/pkg/lib/log"
	"github.com/bRuttaZz/stmp/pkg/types"
)

// testRoute 命令行默认注册的演示命名空间
const testRoute = "/test-route"

func registerCLIHandlers(s *stmp.Server) error {
	if _, err := s.RegisterHandler(testRoute, printMessage); err != nil {
		return err
	}
	_, err := s.RegisterPeerListUpdateHandler(printPeerUpdate)
	return err
}

func printMessage(_ context.Context, p *stmp.Packet) error {
	data := string(p.Data)
	if text, ok := p.Text(); ok {
		data = text
	}
	pterm.Printf("%s@%s: %s\n", p.Header.User, p.Sender, data)
	return nil
}

func printPeerUpdate(added *types.Peer, removed []types.Peer) {
	if added != nil {
		pterm.Success.Printf("节点加入 %s@%s (%s)\n", added.User, added.IP, added.Hostname)
		return
	}
	names := make([]string, 0, len(removed))
	for _, p := range removed {
		names = append(names, p.User+"@"+p.IP)
	}
	pterm.Warning.Printf("节点离开 %s\n", strings.Join(names, ", "))
}

func printBanner(s *stmp.Server) {
	cfg := s.Config()
	pterm.DefaultSection.Println("stmp")
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"用户", fmt.Sprintf("%s@%s", s.Username(), s.Hostname())},
		{"会话", log.TruncateID(s.Session(), 8)},
		{"多播", cfg.Network.UDPAddr()},
		{"TCP", fmt.Sprint(cfg.Network.TCPPort)},
		{"公钥", log.TruncateID(s.PublicKey(), 16)},
	}).Render()
}

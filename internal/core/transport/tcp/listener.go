package tcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/bRuttaZz/stmp/internal/core/wire"
	pkgif "github.com/bRuttaZz/stmp/pkg/interfaces"
)

// ============================================================================
//                              接收会话
// ============================================================================

// 确保实现了接口
var _ pkgif.Session = (*Session)(nil)

// acceptRetryDelay 非关闭类 Accept 错误后的重试间隔
const acceptRetryDelay = 50 * time.Millisecond

// Session TCP 接收会话
//
// 后台 goroutine 持续 Accept，把连接放入容量为 backlog 的队列；
// 队列满时停止 Accept，剩余连接留在内核队列中。
type Session struct {
	ln      net.Listener
	conns   chan net.Conn
	done    chan struct{}
	timeout time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func newSession(ln net.Listener, backlog int, timeout time.Duration) *Session {
	s := &Session{
		ln:      ln,
		conns:   make(chan net.Conn, backlog),
		done:    make(chan struct{}),
		timeout: timeout,
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s
}

// Addr 返回监听地址
func (s *Session) Addr() net.Addr {
	return s.ln.Addr()
}

func (s *Session) acceptLoop() {
	defer s.wg.Done()
	defer close(s.conns)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("TCP Accept 失败", "err", err)
			select {
			case <-s.done:
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		select {
		case s.conns <- conn:
		case <-s.done:
			_ = conn.Close()
			return
		}
	}
}

// Read 接受一个连接并读取一帧
//
// 读取在前缀声明的完整长度或 EOF 处停止，之后回写确认并关闭连接。
// 单个连接的读取失败返回 ErrConnRead，会话仍可继续使用。
func (s *Session) Read(ctx context.Context, max int) ([]byte, string, error) {
	var conn net.Conn
	select {
	case c, ok := <-s.conns:
		if !ok {
			return nil, "", ErrSessionClosed
		}
		conn = c
	case <-s.done:
		return nil, "", ErrSessionClosed
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
	defer conn.Close()

	sender := ""
	if ta, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		sender = ta.IP.String()
	}

	_ = conn.SetDeadline(time.Now().Add(s.timeout))
	data, err := readFrame(conn, max)
	if err != nil && len(data) == 0 {
		return nil, sender, fmt.Errorf("%w: %s: %w", ErrConnRead, sender, err)
	}

	if _, werr := conn.Write(AckPayload); werr != nil {
		logger.Debug("TCP 确认写入失败", "sender", sender, "err", werr)
	}
	return data, sender, nil
}

// readFrame 读取前缀声明长度的数据，最多 max 字节
//
// 前缀声明超过 max 时只返回前缀，由解码层拒绝。
func readFrame(r io.Reader, max int) ([]byte, error) {
	prefix := make([]byte, wire.PrefixSize)
	n, err := io.ReadFull(r, prefix)
	if err != nil {
		return prefix[:n], err
	}

	need := wire.PrefixSize +
		int(binary.BigEndian.Uint16(prefix[0:2])) +
		int(binary.BigEndian.Uint32(prefix[2:6]))
	if need > max {
		return prefix, nil
	}

	buf := make([]byte, need)
	copy(buf, prefix)
	n, err = io.ReadFull(r, buf[wire.PrefixSize:])
	if err != nil {
		return buf[:wire.PrefixSize+n], err
	}
	return buf, nil
}

// Close 停止接受连接并关闭监听
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.ln.Close()
		s.wg.Wait()
		for c := range s.conns {
			_ = c.Close()
		}
	})
	return s.closeErr
}

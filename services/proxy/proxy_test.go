package proxy

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProxy(t *testing.T) {
	tests := []struct {
		entry   string
		want    string
		wantErr bool
	}{
		{entry: "127.0.0.1:1080", want: "socks5://127.0.0.1:1080"},
		{entry: " http://proxy.local:3128 ", want: "http://proxy.local:3128"},
		{entry: "socks4://10.0.0.1:9050", want: "socks4://10.0.0.1:9050"},
		{entry: "ftp://10.0.0.1:21", wantErr: true},
		{entry: "10.0.0.1", wantErr: true},
		{entry: "10.0.0.1:70000", wantErr: true},
		{entry: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			p, err := ParseProxy(tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.URL())
		})
	}
}

// startSOCKS5Stub accepts connections and answers the no-auth greeting
func startSOCKS5Stub(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 3)
				if _, err := c.Read(buf); err != nil {
					return
				}
				c.Write([]byte{0x05, 0x00})
			}(conn)
		}
	}()
	return l
}

// closedAddr returns an address nothing listens on
func closedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestProxyManager(t *testing.T) {
	stub := startSOCKS5Stub(t)
	defer stub.Close()

	pm := NewProxyManager([]string{closedAddr(t), "bogus", stub.Addr().String()})
	pm.probeTimeout = time.Second
	assert.Equal(t, 2, pm.Len())

	fastest, err := pm.GetFastestProxy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "socks5://"+stub.Addr().String(), fastest.URL())
	assert.True(t, fastest.Working)

	top := pm.GetTopProxies(5)
	assert.Len(t, top, 1)
}

func TestProxyManager_NoneWorking(t *testing.T) {
	pm := NewProxyManager([]string{closedAddr(t)})
	pm.probeTimeout = time.Second

	err := pm.UpdateProxies(context.Background())
	assert.Error(t, err)

	_, err = pm.GetFastestProxy(context.Background())
	assert.Error(t, err)
	assert.Empty(t, pm.GetTopProxies(3))
}

func TestProxyManager_Empty(t *testing.T) {
	pm := NewProxyManager(nil)
	assert.Error(t, pm.UpdateProxies(context.Background()))
}

// Package access serves connection info for joining viewers: the audience
// URL on the host's LAN address and a scannable QR code for it.
package access

import (
	"encoding/base64"
	"fmt"
	"net"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/context-subtitles/relay/pkg/response"
)

// Handler handles GET /qr.
type Handler struct {
	port   string
	logger *zap.Logger
}

// NewHandler creates an access handler for the listening port.
func NewHandler(port string, logger *zap.Logger) *Handler {
	return &Handler{port: port, logger: logger}
}

// ConnectionInfo returns the audience URL derived from the first
// non-loopback IPv4 address, plus a base64 PNG data URL of its QR code.
func (h *Handler) ConnectionInfo(c *gin.Context) {
	host := lanAddress()
	url := fmt.Sprintf("http://%s:%s/", host, h.port)

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("qr encode failed", zap.Error(err))
		response.Internal(c, "failed to generate QR code")
		return
	}
	response.OK(c, gin.H{
		"url": url,
		"qr":  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}

// lanAddress returns the first non-loopback IPv4 address of an interface
// that is up, or localhost when the host has none.
func lanAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip := ipNet.IP.To4(); ip != nil && !ip.IsLoopback() {
				return ip.String()
			}
		}
	}
	return "localhost"
}

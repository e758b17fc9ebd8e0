package ws

import (
	"fmt"
	"io"
	"net"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// ViewerURL builds the address a tablet on the LAN should open.
func ViewerURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = lanIP()
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func lanIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() && ipn.IP.To4() != nil {
			return ipn.IP.String()
		}
	}
	return "localhost"
}

// PrintQR writes url as a terminal QR code followed by the url itself.
func PrintQR(w io.Writer, url string) error {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, row := range qr.Bitmap() {
		for _, black := range row {
			if black {
				b.WriteString("██")
			} else {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	_, err = fmt.Fprintf(w, "%s%s\n", b.String(), url)
	return err
}

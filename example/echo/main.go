//go:build linux

package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Allenxuxu/ringbuffer"
	"github.com/libp2p/go-reuseport"
	"golang.org/x/sys/unix"

	"github.com/Allenxuxu/pollmux/log"
	"github.com/Allenxuxu/pollmux/metrics"
	"github.com/Allenxuxu/pollmux/poller"
)

type conn struct {
	fd  int
	out *ringbuffer.RingBuffer
}

func main() {
	var port int
	flag.IntVar(&port, "port", 1833, "server port")
	flag.Parse()

	go metrics.MustRun("", ":9091")

	ln, err := reuseport.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		panic(err)
	}
	lf, err := ln.(*net.TCPListener).File()
	if err != nil {
		panic(err)
	}
	defer lf.Close()
	lfd := int(lf.Fd())
	if err := unix.SetNonblock(lfd, true); err != nil {
		panic(err)
	}

	wake := poller.NewWakeup()
	defer wake.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		wake.Signal()
	}()

	conns := make(map[int]*conn)
	buf := make([]byte, 4096)

	log.Info("echo server listening on :", port)
	for {
		fds := make([]poller.PollFD, 0, len(conns)+2)
		fds = append(fds, wake.PollFD())
		fds = append(fds, poller.PollFD{Fd: lfd, Events: poller.EventRead})
		for _, c := range conns {
			ev := poller.EventRead
			if !c.out.IsEmpty() {
				ev |= poller.EventWrite
			}
			fds = append(fds, poller.PollFD{Fd: c.fd, Events: ev})
		}

		if _, err := poller.Poll(fds, -1); err != nil {
			log.Error("poll:", err)
			continue
		}

		if fds[0].Revents != 0 {
			break
		}
		if fds[1].Revents&poller.EventRead != 0 {
			acceptAll(lfd, conns)
		}
		for _, p := range fds[2:] {
			c := conns[p.Fd]
			if c == nil || p.Revents == 0 {
				continue
			}
			if p.Revents&(poller.EventHup|poller.EventErr) != 0 {
				closeConn(conns, c)
				continue
			}
			if p.Revents&poller.EventRead != 0 {
				if !readConn(c, buf) {
					closeConn(conns, c)
					continue
				}
			}
			if p.Revents&poller.EventWrite != 0 {
				flush(c)
			}
		}
	}

	wake.Acknowledge()
	for _, c := range conns {
		_ = unix.Close(c.fd)
	}
	log.Info("bye")
}

func acceptAll(lfd int, conns map[int]*conn) {
	for {
		fd, _, err := unix.Accept(lfd)
		if err != nil {
			if err != unix.EAGAIN {
				log.Warn("accept:", err)
			}
			return
		}
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fd)
			continue
		}
		conns[fd] = &conn{fd: fd, out: ringbuffer.New(4096)}
	}
}

// readConn drains the socket into the connection's output ring. It returns
// false when the peer is gone.
func readConn(c *conn, buf []byte) bool {
	for {
		n, err := unix.Read(c.fd, buf)
		if n > 0 {
			_, _ = c.out.Write(buf[:n])
			continue
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN {
			break
		}
		return false
	}
	flush(c)
	return true
}

// flush writes out as much of the buffered output as the socket accepts;
// the rest waits for the next EventWrite.
func flush(c *conn) {
	first, end := c.out.PeekAll()
	if len(first) == 0 {
		return
	}
	n, err := unix.Write(c.fd, first)
	if n > 0 {
		c.out.Retrieve(n)
	}
	if err != nil || n < len(first) || len(end) == 0 {
		return
	}
	n, _ = unix.Write(c.fd, end)
	if n > 0 {
		c.out.Retrieve(n)
	}
}

func closeConn(conns map[int]*conn, c *conn) {
	delete(conns, c.fd)
	_ = unix.Close(c.fd)
}

// Package peer receives control Events over a WebRTC DataChannel named
// "input". Signaling is manual: a base64 offer in, a base64 answer out.
package peer

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v3"

	in "keysynth/internal/input"
	t "keysynth/internal/types"
)

const InputLabel = "input"

type Config struct {
	STUNURLs    []string
	OpenTimeout time.Duration
	Dispatcher  *in.Dispatcher
	Logger      logging.LeveledLogger
}

type Peer struct {
	cfg    Config
	log    logging.LeveledLogger
	pc     *webrtc.PeerConnection
	opened chan struct{}
	failed chan struct{}

	openOnce sync.Once
	failOnce sync.Once
}

// New creates the answering side of the connection.
func New(cfg Config) (*Peer, error) {
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewDefaultLoggerFactory().NewLogger("peer")
	}

	var ice []webrtc.ICEServer
	if len(cfg.STUNURLs) > 0 {
		ice = []webrtc.ICEServer{{URLs: cfg.STUNURLs}}
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: ice})
	if err != nil {
		return nil, fmt.Errorf("new pc: %w", err)
	}

	p := &Peer{
		cfg:    cfg,
		log:    log,
		pc:     pc,
		opened: make(chan struct{}),
		failed: make(chan struct{}),
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		label := dc.Label()
		p.log.Infof("data channel: %s", label)
		if label != InputLabel {
			return
		}
		dc.OnOpen(func() { p.openOnce.Do(func() { close(p.opened) }) })
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			p.handleMessage(dc, msg)
		})
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		p.log.Infof("peer connection state: %s", s.String())
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			p.failOnce.Do(func() { close(p.failed) })
		}
	})
	return p, nil
}

func (p *Peer) handleMessage(dc *webrtc.DataChannel, msg webrtc.DataChannelMessage) {
	if !msg.IsString {
		return
	}
	reply := t.Reply{OK: true}
	var ev t.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		reply = t.Reply{Error: "invalid event: " + err.Error()}
	} else if err := p.cfg.Dispatcher.HandleEvent(ev); err != nil {
		p.log.Warnf("event %s failed: %v", ev.Type, err)
		reply = t.Reply{Error: err.Error()}
	}
	b, _ := json.Marshal(reply)
	if err := dc.SendText(string(b)); err != nil {
		p.log.Warnf("reply send: %v", err)
	}
}

// Answer applies the remote offer and returns the local answer once ICE
// gathering is complete.
func (p *Peer) Answer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set remote: %w", err)
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local: %w", err)
	}
	<-gatherComplete
	return *p.pc.LocalDescription(), nil
}

// Run reads an offer from r, writes the answer to w and then serves the input
// channel until ctx is cancelled or the connection fails.
func (p *Peer) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	defer p.Close()

	fmt.Fprintln(w, "Paste base64 Offer then press Enter:")
	raw, err := readOffer(r)
	if err != nil {
		return err
	}
	var offer webrtc.SessionDescription
	if err := Decode(raw, &offer); err != nil {
		return fmt.Errorf("decode offer: %w", err)
	}
	answer, err := p.Answer(offer)
	if err != nil {
		return err
	}
	enc, err := Encode(answer)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Answer (base64). Copy back into the offering side:\n"+enc)

	select {
	case <-p.opened:
		p.log.Info("input channel ready")
	case <-p.failed:
		return errors.New("peer connection failed before input channel opened")
	case <-time.After(p.cfg.OpenTimeout):
		return errors.New("input channel not opened by remote")
	case <-ctx.Done():
		return nil
	}

	select {
	case <-ctx.Done():
		return nil
	case <-p.failed:
		return errors.New("peer connection failed")
	}
}

func (p *Peer) Close() error {
	return p.pc.Close()
}

func readOffer(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("empty offer")
	}
	return line, nil
}

// Encode renders a session description as base64 JSON.
func Encode(sd webrtc.SessionDescription) (string, error) {
	b, err := json.Marshal(sd)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Decode parses base64 JSON produced by Encode.
func Decode(s string, sd *webrtc.SessionDescription) error {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("decode b64: %w", err)
	}
	return json.Unmarshal(b, sd)
}

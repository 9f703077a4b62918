package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"localchat/contract"
	"localchat/observability"
	"localchat/runtime"
	"localchat/runtime/workers"
)

var peerColors = []string{"#f56565", "#48bb78", "#ed8936", "#9f7aea", "#38b2ac"}

var peerLines = []string{
	"hi everyone :)",
	"anyone around?",
	"this polling thing works :fire:",
	"brb",
	"<3 local storage",
	"ok back",
}

// peer is a scripted tab living in the same process, so a single terminal
// can watch the sync protocol at work.
type peer struct {
	tab  *runtime.Tab
	log  *slog.Logger
	step int
}

// startPeers logs the peers in and returns their workers for supervision.
func startPeers(browser *runtime.Browser, count int, interval time.Duration,
	log *slog.Logger, monitoring *observability.MonitoringManager) ([]contract.Worker, error) {
	var res []contract.Worker
	for i := 0; i < count; i++ {
		p := &peer{tab: browser.OpenTab(nil), log: log, step: rand.IntN(len(peerLines))}
		name := fmt.Sprintf("Peer %d", i+1)
		if err := p.tab.Login(name, peerColors[i%len(peerColors)]); err != nil {
			return nil, fmt.Errorf("logging %s in failed: %w", name, err)
		}
		res = append(res, workers.NewPeriodicWorker(name, interval+time.Duration(i)*time.Second, p.act, log, monitoring))
	}
	return res, nil
}

// act alternates between typing and sending the next scripted line.
func (p *peer) act() {
	session := p.tab.Session()
	if p.step%2 == 0 {
		if err := session.Typing(); err != nil {
			p.log.Debug("Peer could not type", "error", err)
		}
	} else if _, err := session.Send(peerLines[(p.step/2)%len(peerLines)]); err != nil {
		p.log.Debug("Peer could not send", "error", err)
	}
	p.step++
}

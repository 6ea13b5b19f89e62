package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/gosuri/uiprogress"

	"scout/announce"
	"scout/helper"
	"scout/torrentfile"
	"scout/tracker"
)

const maxListed = 10

func main() {
	timeout := flag.Duration("timeout", tracker.DefaultConfig.Timeout, "time limit for each tracker")
	port := flag.Uint("port", tracker.DefaultPort, "port reported to the tracker")
	fallback := flag.Bool("fallback-on-failure", tracker.DefaultConfig.FallbackOnFailure, "try the next tracker when one refuses the announce")
	showProgress := flag.Bool("progress", true, "show a progress bar while contacting trackers")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <file.torrent>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	defer glog.Flush()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *port > 65535 {
		glog.Exitf("port %d out of range", *port)
	}

	tf, err := torrentfile.Open(flag.Arg(0))
	if err != nil {
		glog.Exit(err)
	}
	printTorrent(tf)

	config := tracker.DefaultConfig
	config.Timeout = *timeout
	config.FallbackOnFailure = *fallback
	var progress *trackerProgress
	if *showProgress {
		progress = newTrackerProgress(len(tf.Trackers()))
		config.OnAttempt = progress.attempt
	}

	client, err := tracker.NewClient(config)
	if err != nil {
		glog.Exit(err)
	}

	session := tracker.NewSession(tf, helper.NewRand())
	session.Port = uint16(*port)
	res, err := client.Announce(tf, session)
	if progress != nil {
		progress.stop()
	}
	if err != nil {
		glog.Exitf("announce failed: %v", err)
	}
	printResponse(res)
}

func printTorrent(tf *torrentfile.TorrentFile) {
	fmt.Printf("Name: %s\n", tf.Name)
	fmt.Printf("Info Hash: %x\n", tf.InfoHash)
	fmt.Printf("Length: %d\n", tf.Length)
	fmt.Printf("Piece Length: %d\n", tf.PieceLength)
	fmt.Printf("Pieces: %d\n", tf.NumPieces())
	if tf.Comment != "" {
		fmt.Printf("Comment: %s\n", tf.Comment)
	}
	if tf.CreatedBy != "" {
		fmt.Printf("Created By: %s\n", tf.CreatedBy)
	}
	if !tf.CreationDate.IsZero() {
		fmt.Printf("Created: %s\n", tf.CreationDate.Format("2006-01-02 15:04:05 MST"))
	}

	if files, ok := tf.Files.(torrentfile.MultiFile); ok {
		fmt.Printf("Files: %d\n", len(files.Files))
		for i, f := range files.Files {
			if i == maxListed {
				fmt.Printf("  ... and %d more\n", len(files.Files)-maxListed)
				break
			}
			fmt.Printf("  %s (%d)\n", strings.Join(f.Path, "/"), f.Length)
		}
	}

	fmt.Println("Trackers:")
	for _, u := range tf.Trackers() {
		fmt.Printf("  %s\n", u)
	}
}

func printResponse(res *announce.Response) {
	fmt.Printf("Interval: %ds\n", res.Interval)
	if res.MinInterval > 0 {
		fmt.Printf("Min Interval: %ds\n", res.MinInterval)
	}
	fmt.Printf("Seeders: %d\n", res.Complete)
	fmt.Printf("Leechers: %d\n", res.Incomplete)
	if res.Warning != "" {
		fmt.Printf("Warning: %s\n", res.Warning)
	}
	fmt.Printf("Peers: %d\n", len(res.Peers))
	for i, p := range res.Peers {
		if i == maxListed {
			fmt.Printf("  ... and %d more\n", len(res.Peers)-maxListed)
			break
		}
		fmt.Printf("  %s\n", p)
	}
}

// trackerProgress draws one bar step per tracker attempt.
type trackerProgress struct {
	mu     sync.Mutex
	bar    *uiprogress.Bar
	last   string
	failed int
}

func newTrackerProgress(total int) *trackerProgress {
	p := &trackerProgress{}
	uiprogress.Start()
	p.bar = uiprogress.AddBar(total)
	p.bar.AppendCompleted()
	p.bar.PrependFunc(func(b *uiprogress.Bar) string {
		return fmt.Sprintf("trackers: %d/%d", b.Current(), total)
	})
	p.bar.AppendFunc(func(b *uiprogress.Bar) string {
		p.mu.Lock()
		defer p.mu.Unlock()
		return fmt.Sprintf("failed: %d %s", p.failed, p.last)
	})
	return p
}

func (p *trackerProgress) attempt(trackerURL string, err error) {
	p.mu.Lock()
	p.last = trackerURL
	if err != nil {
		p.failed++
	}
	p.mu.Unlock()
	p.bar.Incr()
}

func (p *trackerProgress) stop() {
	uiprogress.Stop()
}

package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/chunker"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/files"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/shortcode"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/ui"
)

var flagOutputDir string

var receiveCmd = &cobra.Command{
	Use:     "receive <code>",
	Aliases: []string{"r", "get"},
	Short:   "Receive a file using a share code",
	Long: `Receive the payload behind a share code. The sender runs "meow send"
and reads the three-word code out loud; type it here and the transfer
starts once the peers connect.

Examples:
  meow receive happy-ramen-guitar
  meow receive --dir ~/Downloads happy-ramen-guitar`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return receive(args[0])
	},
}

// maxInlineText bounds what counts as a printable snippet rather than a
// file worth saving.
const maxInlineText = 64 << 10

func textPayload(meta transfer.FileMetadata) bool {
	return strings.HasPrefix(meta.Type, "text/plain") && meta.Size <= maxInlineText
}

// destFile opens the destination lazily: the name is only known once the
// sender's metadata arrives, but the receiver has to exist before it.
// Small text snippets go to memory and get printed at the end instead of
// becoming a file.
type destFile struct {
	mu   sync.Mutex
	dir  string
	path string
	f    *os.File
	buf  *bytes.Buffer
}

func (d *destFile) open(meta transfer.FileMetadata) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if textPayload(meta) {
		d.buf = &bytes.Buffer{}
		return nil
	}

	f, err := os.Create(files.UniqueName(d.dir, filepath.Base(meta.Name)))
	if err != nil {
		return err
	}
	d.path = f.Name()
	d.f = f
	return nil
}

func (d *destFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.buf != nil {
		return d.buf.Write(p)
	}
	if d.f == nil {
		return 0, transfer.ErrMetadataMissing
	}
	return d.f.Write(p)
}

// text returns the buffered snippet, if this payload was one.
func (d *destFile) text() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.buf == nil {
		return "", false
	}
	return d.buf.String(), true
}

func (d *destFile) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f != nil {
		d.f.Close()
	}
}

// discard removes a partial download after a failed transfer.
func (d *destFile) discard() {
	d.close()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.path != "" {
		os.Remove(d.path)
	}
}

func receive(code string) error {
	code = shortcode.Normalize(code)
	if err := shortcode.Validate(code); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := flagOutputDir
	if dir == "" {
		dir = "."
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("output directory %q does not exist", dir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, ch, err := connectPeer(ctx, cfg, code, false)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	dest := &destFile{dir: dir}
	session := transfer.NewSession(code)
	recv := chunker.NewReceiver(ch, session, dest)

	ch.OnMetadata(func(meta transfer.FileMetadata) {
		if err := dest.open(meta); err != nil {
			recv.Fail(transfer.NewFileError("create output file", meta.Name, err))
			return
		}
		recv.HandleMetadata(meta)
	})
	ch.OnBinary(recv.HandleChunk)
	ch.OnComplete(recv.HandleComplete)
	ch.OnCancel(recv.HandleCancel)
	watchTransport(ctx, ctrl, cancel, recv.Fail)

	result := make(chan error, 1)
	go func() { result <- recv.Wait(ctx) }()

	view := ui.NewTransferUI(ui.ModeReceive, session, cancel)
	if err := view.Run(); err != nil {
		ui.PrintWarning("display stopped: " + err.Error())
	}

	if err := <-result; err != nil {
		dest.discard()
		return err
	}
	dest.close()

	meta := session.Metadata()
	if text, ok := dest.text(); ok {
		fmt.Println()
		fmt.Println(ui.BoldStyle.Render("Message from peer:"))
		fmt.Println(text)
	} else {
		ui.PrintSuccessf("Saved to %s", dest.path)
	}

	var speed float64
	if secs := session.Duration().Seconds(); secs > 0 {
		speed = float64(recv.Received()) / secs
	}
	ui.RenderTransferSummary(ui.IconReceive+" Receive Summary", ui.TransferSummary{
		Status:   ui.IconSuccess + " Complete",
		File:     meta.Name,
		Size:     recv.Received(),
		Duration: session.Duration(),
		Speed:    speed,
	})
	return nil
}

func init() {
	rootCmd.AddCommand(receiveCmd)
	addConnectionFlags(receiveCmd)
	receiveCmd.Flags().StringVar(&flagOutputDir, "dir", "", "Directory to save the received file (default current)")
}

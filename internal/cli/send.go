package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/chunker"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/files"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/shortcode"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/ui"
)

var flagText string

var sendCmd = &cobra.Command{
	Use:     "send [file]",
	Aliases: []string{"s"},
	Short:   "Share a file or a text snippet with a receiver",
	Long: `Share a file directly with a receiver over a WebRTC data channel.

The command prints a three-word code; the receiver runs "meow receive"
with that code and the transfer starts as soon as the peers connect.

Examples:
  meow send photo.jpg
  meow send --text "the wifi password is hunter2"
  meow send --relay big-dataset.tar.gz`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagText != "" {
			if len(args) != 0 {
				return fmt.Errorf("pass a file or --text, not both")
			}
			return sendText(flagText)
		}
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one file to send")
		}
		return sendFile(args[0])
	},
}

func sendFile(path string) error {
	spin := ui.NewSimpleSpinner("Validating file...")
	spin.Start()
	info, err := files.Validate(path)
	spin.Stop()
	if err != nil {
		return err
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return transfer.NewFileError("open file", info.Name, err)
	}
	defer f.Close()

	meta := transfer.FileMetadata{
		Name:    info.Name,
		Type:    info.Type,
		Size:    info.Size,
		ModTime: info.ModTime.UnixMilli(),
	}

	fmt.Println()
	ui.RenderFileTable(ui.FileTableItem{Name: info.Name, Size: info.Size, Type: info.Type})

	return runSend(meta, f)
}

func sendText(text string) error {
	payload := []byte(text)
	meta := transfer.FileMetadata{
		Name:    "message.txt",
		Type:    "text/plain; charset=utf-8",
		Size:    int64(len(payload)),
		ModTime: time.Now().UnixMilli(),
	}

	fmt.Println()
	ui.RenderFileTable(ui.FileTableItem{Name: meta.Name, Size: meta.Size, Type: meta.Type})

	return runSend(meta, bytes.NewReader(payload))
}

func runSend(meta transfer.FileMetadata, src io.ReaderAt) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	code := shortcode.Generate()
	fmt.Println()
	fmt.Println(ui.CodeBox(code, cfg.Domain))
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, ch, err := connectPeer(ctx, cfg, code, true)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	session := transfer.NewSession(code)
	sender := chunker.NewSender(ch, src, meta, session)
	ch.OnReady(sender.NotifyReady)
	ch.OnCancel(sender.NotifyCancel)
	watchTransport(ctx, ctrl, cancel, session.Fail)

	result := make(chan error, 1)
	go func() { result <- sender.Run(ctx) }()

	view := ui.NewTransferUI(ui.ModeSend, session, cancel)
	if err := view.Run(); err != nil {
		ui.PrintWarning("display stopped: " + err.Error())
	}

	if err := <-result; err != nil {
		// a transport failure lands on the session first and reads better
		// than the cancellation it triggers in the send loop
		if serr := session.Err(); serr != nil {
			return serr
		}
		return err
	}

	var speed float64
	if secs := session.Duration().Seconds(); secs > 0 {
		speed = float64(meta.Size) / secs
	}
	ui.RenderTransferSummary(ui.IconSend+" Transfer Summary", ui.TransferSummary{
		Status:   ui.IconSuccess + " Complete",
		File:     meta.Name,
		Size:     meta.Size,
		Duration: session.Duration(),
		Speed:    speed,
	})
	return nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addConnectionFlags(sendCmd)
	sendCmd.Flags().StringVar(&flagText, "text", "", "Share a text snippet instead of a file")
}

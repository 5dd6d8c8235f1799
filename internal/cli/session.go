package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/config"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/connection"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/shortcode"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/signaling"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/ui"
)

var (
	flagDomain   string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Custom relay domain")
	cmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	cmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	cmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	cmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		TURNServer: flagTURN,
		TURNUser:   flagTURNUser,
		TURNPass:   flagTURNPass,
		ForceRelay: flagRelay,
	})
}

// connectPeer negotiates the direct transport for a short code and returns
// the controller and the opened transfer channel. The sender initiates;
// the receiver answers.
func connectPeer(ctx context.Context, cfg *config.Config, code string, initiator bool) (*connection.Controller, *transfer.Channel, error) {
	client := signaling.NewClient(
		cfg.ServerURL,
		cfg.WebSocketURL,
		shortcode.Normalize(code),
		cfg.PollConnecting,
		cfg.PollConnected,
	)

	ctrl, err := connection.NewController(cfg, client, initiator)
	if err != nil {
		return nil, nil, err
	}

	// terminal negotiation errors surface through Failures, not Run
	go func() { _ = ctrl.Run(ctx) }()

	spin := ui.NewConnectionSpinner("Connecting to peer...")
	spin.Start()
	defer spin.Stop()

	select {
	case <-ctx.Done():
		ctrl.Close()
		return nil, nil, transfer.NewError("connect", transfer.ErrCancelled)
	case err := <-ctrl.Failures():
		ctrl.Close()
		return nil, nil, err
	case ch := <-ctrl.Channel():
		spin.Success("Peer connected")
		return ctrl, ch, nil
	}
}

// watchTransport forwards a post-connect negotiation failure into the
// running transfer, so a dead link fails the session immediately instead
// of leaving the transfer blocked on a buffer that will never drain.
func watchTransport(ctx context.Context, ctrl *connection.Controller, cancel context.CancelFunc, fail func(error)) {
	go func() {
		select {
		case <-ctx.Done():
		case err := <-ctrl.Failures():
			fail(err)
			cancel()
		}
	}()
}

package main

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	wpgo "github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tinywideclouds/go-webpush/pkg/push"
	"github.com/tinywideclouds/go-webpush/webpush"
	"github.com/tinywideclouds/go-webpush/webpush/config"
)

func newSendCommand(loadConfig func() (*config.Config, error), logger *slog.Logger) *cobra.Command {
	var subscriptionFlag string
	var messageFlag string
	var caFileFlag string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one push notification to a subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := readSubscriptionFile(subscriptionFlag, cmd.InOrStdin())
			if err != nil {
				return err
			}
			sub, err := parseSubscription(data)
			if err != nil {
				return err
			}

			opts := []webpush.Option{}
			if cfg.UnauthorizedReasons != nil {
				opts = append(opts, webpush.WithUnauthorizedReasons(cfg.UnauthorizedReasons...))
			}
			if caFileFlag != "" {
				pool, err := loadCertPool(caFileFlag)
				if err != nil {
					return err
				}
				opts = append(opts, webpush.WithRootCAs(pool))
			}

			sendLogger := logger.With("push_id", uuid.NewString())
			sender := webpush.NewSender(sendLogger, opts...)
			resp, err := sender.Send(cmd.Context(), push.Notification{
				Message:      []byte(messageFlag),
				Subscription: sub,
				Vapid:        cfg.Vapid,
				Delivery:     cfg.Delivery,
			})
			if err != nil {
				var respErr *push.ResponseError
				if errors.As(err, &respErr) {
					sendLogger.Warn("Push rejected", "kind", respErr.Kind.String(), "status", respErr.StatusCode())
				}
				return err
			}
			defer resp.Body.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Push accepted: %s\n", resp.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subscriptionFlag, "subscription", "s", "", "Subscription JSON file as produced by PushSubscription.toJSON() ('-' for stdin)")
	cmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Message to encrypt and send (empty sends a wake-up push)")
	cmd.Flags().StringVar(&caFileFlag, "ca-file", "", "PEM bundle used to verify the push service certificate")
	_ = cmd.MarkFlagRequired("subscription")
	return cmd
}

func readSubscriptionFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subscription %s: %w", path, err)
	}
	return data, nil
}

// parseSubscription decodes the browser's JSON subscription, whose keys are
// base64url strings, into raw key bytes.
func parseSubscription(data []byte) (push.Subscription, error) {
	var raw wpgo.Subscription
	if err := json.Unmarshal(data, &raw); err != nil {
		return push.Subscription{}, fmt.Errorf("invalid subscription json: %w", err)
	}
	sub := push.Subscription{Endpoint: raw.Endpoint}
	if raw.Keys.P256dh != "" {
		p256dh, err := decodeKey(raw.Keys.P256dh)
		if err != nil {
			return push.Subscription{}, fmt.Errorf("invalid p256dh key: %w", err)
		}
		sub.Keys.P256dh = p256dh
	}
	if raw.Keys.Auth != "" {
		auth, err := decodeKey(raw.Keys.Auth)
		if err != nil {
			return push.Subscription{}, fmt.Errorf("invalid auth secret: %w", err)
		}
		sub.Keys.Auth = auth
	}
	return sub, nil
}

func decodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

func loadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca file %s: %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// Command stowhub-admin is a staff dashboard for the Stowhub marketplace:
// it reviews users, resolves workflow requests, inspects orders, processes
// keeper payouts and follows the live staff notification feed.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/session"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "stowhub-admin",
		Usage: "administer the Stowhub storage marketplace",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Usage:   "host URL of the admin API",
				Value:   stowhub.DefaultHostURL,
				EnvVars: []string{"STOWHUB_HOST"},
			},
			&cli.StringFlag{
				Name:  "session-dir",
				Usage: "directory the session file fallback is stored in",
				Value: defaultSessionDir(),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},

		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}

			return nil
		},

		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			usersCommand(),
			requestsCommand(),
			ordersCommand(),
			payoutsCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:      "login",
		Usage:     "log in with a staff account",
		ArgsUsage: "<email>",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "password",
				Usage: "password (read from stdin when omitted)",
			},
		},

		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: login <email>")
			}

			password := c.String("password")

			if password == "" {
				fmt.Fprint(os.Stderr, "Password: ")

				scanner := bufio.NewScanner(os.Stdin)
				if !scanner.Scan() {
					return fmt.Errorf("failed to read password")
				}

				password = strings.TrimSpace(scanner.Text())
			}

			store, err := newStore(c)
			if err != nil {
				return err
			}

			m := newManager(c)
			defer m.Close()

			client, auth, err := m.NewClientWithLogin(c.Context, c.Args().First(), []byte(password))
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			defer client.Close()

			if err := store.Save(session.Session{
				UID:          auth.UID,
				AccessToken:  auth.AccessToken,
				RefreshToken: auth.RefreshToken,
				User:         auth.User,
			}); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			logrus.WithField("user", auth.User.Username).Info("Logged in")

			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "log out and clear the stored session",

		Action: func(c *cli.Context) error {
			store, client, m, err := restore(c)
			if err != nil {
				return err
			}
			defer m.Close()
			defer client.Close()

			if err := client.AuthDelete(c.Context); err != nil {
				logrus.WithError(err).Warn("Failed to revoke session remotely")
			}

			return store.Clear()
		},
	}
}

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "review marketplace users",

		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list users",

				Flags: []cli.Flag{
					&cli.IntFlag{Name: "role", Usage: "filter by role (1=renter, 2=keeper, 3=staff)"},
					&cli.IntFlag{Name: "page"},
					&cli.IntFlag{Name: "page-size", Value: 20},
				},

				Action: func(c *cli.Context) error {
					_, client, m, err := restore(c)
					if err != nil {
						return err
					}
					defer m.Close()
					defer client.Close()

					users, err := client.GetUsers(c.Context, stowhub.UserFilter{
						Role:     stowhub.UserRole(c.Int("role")),
						Page:     c.Int("page"),
						PageSize: c.Int("page-size"),
					})
					if err != nil {
						return err
					}

					return printJSON(users)
				},
			},
			{
				Name:      "ban",
				Usage:     "ban a user",
				ArgsUsage: "<userID>",

				Action: func(c *cli.Context) error {
					_, client, m, err := restore(c)
					if err != nil {
						return err
					}
					defer m.Close()
					defer client.Close()

					return client.BanUser(c.Context, c.Args().First())
				},
			},
			{
				Name:      "unban",
				Usage:     "lift a user's ban",
				ArgsUsage: "<userID>",

				Action: func(c *cli.Context) error {
					_, client, m, err := restore(c)
					if err != nil {
						return err
					}
					defer m.Close()
					defer client.Close()

					return client.UnbanUser(c.Context, c.Args().First())
				},
			},
		},
	}
}

func requestsCommand() *cli.Command {
	return &cli.Command{
		Name:  "requests",
		Usage: "resolve workflow requests",

		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list requests",

				Flags: []cli.Flag{
					&cli.IntFlag{Name: "kind", Usage: "filter by kind (1=keeper-registration, 2=create-storage, 3=delete-storage)"},
					&cli.BoolFlag{Name: "pending", Usage: "only pending requests"},
				},

				Action: func(c *cli.Context) error {
					_, client, m, err := restore(c)
					if err != nil {
						return err
					}
					defer m.Close()
					defer client.Close()

					filter := stowhub.RequestFilter{
						Kind: stowhub.RequestKind(c.Int("kind")),
					}

					if c.Bool("pending") {
						pending := stowhub.RequestPending
						filter.Status = &pending
					}

					requests, err := client.GetRequests(c.Context, filter)
					if err != nil {
						return err
					}

					return printJSON(requests)
				},
			},
			{
				Name:      "approve",
				Usage:     "approve a pending request",
				ArgsUsage: "<requestID>",

				Action: func(c *cli.Context) error {
					_, client, m, err := restore(c)
					if err != nil {
						return err
					}
					defer m.Close()
					defer client.Close()

					request, err := client.ApproveRequest(c.Context, c.Args().First())
					if err != nil {
						return err
					}

					return printJSON(request)
				},
			},
			{
				Name:      "reject",
				Usage:     "reject a pending request",
				ArgsUsage: "<requestID>",

				Flags: []cli.Flag{
					&cli.StringFlag{Name: "reason", Required: true},
				},

				Action: func(c *cli.Context) error {
					_, client, m, err := restore(c)
					if err != nil {
						return err
					}
					defer m.Close()
					defer client.Close()

					request, err := client.RejectRequest(c.Context, c.Args().First(), c.String("reason"))
					if err != nil {
						return err
					}

					return printJSON(request)
				},
			},
		},
	}
}

func ordersCommand() *cli.Command {
	return &cli.Command{
		Name:  "orders",
		Usage: "inspect storage rental orders",

		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list orders",

				Flags: []cli.Flag{
					&cli.StringFlag{Name: "keeper", Usage: "filter by keeper ID"},
					&cli.StringFlag{Name: "renter", Usage: "filter by renter ID"},
				},

				Action: func(c *cli.Context) error {
					_, client, m, err := restore(c)
					if err != nil {
						return err
					}
					defer m.Close()
					defer client.Close()

					orders, err := client.GetOrders(c.Context, stowhub.OrderFilter{
						KeeperID: c.String("keeper"),
						RenterID: c.String("renter"),
					})
					if err != nil {
						return err
					}

					return printJSON(orders)
				},
			},
		},
	}
}

func payoutsCommand() *cli.Command {
	return &cli.Command{
		Name:  "payouts",
		Usage: "process keeper payouts",

		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list payouts",

				Action: func(c *cli.Context) error {
					_, client, m, err := restore(c)
					if err != nil {
						return err
					}
					defer m.Close()
					defer client.Close()

					payouts, err := client.GetPayouts(c.Context, stowhub.PayoutFilter{})
					if err != nil {
						return err
					}

					return printJSON(payouts)
				},
			},
			{
				Name:      "start",
				Usage:     "start processing a payout",
				ArgsUsage: "<payoutID>",

				Action: payoutAction(func(c *cli.Context, ctl *stowhub.PayoutController) (stowhub.Payout, error) {
					return ctl.StartProcessing(c.Context, c.Args().First())
				}),
			},
			{
				Name:      "proof",
				Usage:     "attach a transfer proof image",
				ArgsUsage: "<payoutID> <image-file>",

				Action: payoutAction(func(c *cli.Context, ctl *stowhub.PayoutController) (stowhub.Payout, error) {
					if c.NArg() != 2 {
						return stowhub.Payout{}, fmt.Errorf("usage: proof <payoutID> <image-file>")
					}

					f, err := os.Open(c.Args().Get(1))
					if err != nil {
						return stowhub.Payout{}, err
					}
					defer f.Close()

					return ctl.AttachProof(c.Context, c.Args().First(), filepath.Base(f.Name()), f)
				}),
			},
			{
				Name:      "complete",
				Usage:     "complete a payout with attached proof",
				ArgsUsage: "<payoutID>",

				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "code", Usage: "transaction reference (generated when omitted)"},
				},

				Action: payoutAction(func(c *cli.Context, ctl *stowhub.PayoutController) (stowhub.Payout, error) {
					return ctl.Complete(c.Context, c.Args().First(), stowhub.CompletePayoutReq{
						Description:     c.String("description"),
						TransactionCode: c.String("code"),
					})
				}),
			},
		},
	}
}

// payoutAction runs a payout transition through the controller so that
// out-of-order actions are rejected before any remote call.
func payoutAction(fn func(*cli.Context, *stowhub.PayoutController) (stowhub.Payout, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		_, client, m, err := restore(c)
		if err != nil {
			return err
		}
		defer m.Close()
		defer client.Close()

		ctl := stowhub.NewPayoutController(client)

		if _, err := ctl.Load(c.Context, stowhub.PayoutFilter{}); err != nil {
			return err
		}

		payout, err := fn(c, ctl)
		if err != nil {
			return err
		}

		return printJSON(payout)
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "follow the live staff notification feed",

		Action: func(c *cli.Context) error {
			_, client, m, err := restore(c)
			if err != nil {
				return err
			}
			defer m.Close()
			defer client.Close()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			feed := client.NewFeed()

			for _, kind := range []stowhub.FeedEventKind{
				stowhub.FeedKeeperRegistration,
				stowhub.FeedCreateStorage,
				stowhub.FeedDeleteStorage,
				stowhub.FeedPayoutRequest,
				stowhub.FeedGeneric,
			} {
				feed.Subscribe(kind, func(event stowhub.FeedEvent) {
					fmt.Printf("[%s] %s: %s\n", event.ReceivedAt.Format(time.RFC3339), event.Kind, event.Message)
				})
			}

			if err := feed.Start(ctx); err != nil {
				return fmt.Errorf("failed to start notification feed: %w", err)
			}
			defer feed.Stop()

			logrus.Info("Watching staff notifications, press ^C to stop")

			<-ctx.Done()

			return nil
		},
	}
}

func newManager(c *cli.Context) *stowhub.Manager {
	return stowhub.New(
		stowhub.WithHostURL(c.String("host")),
		stowhub.WithAppVersion("stowhub-admin_1.0.0"),
		stowhub.WithDebug(c.Bool("verbose")),
	)
}

func newStore(c *cli.Context) (*session.Store, error) {
	return session.NewStore("stowhub-admin", c.String("session-dir"))
}

// restore rebuilds an API client from the stored session. Refreshed tokens
// are written back to the store; a deauth (401) clears it.
func restore(c *cli.Context) (*session.Store, *stowhub.Client, *stowhub.Manager, error) {
	store, err := newStore(c)
	if err != nil {
		return nil, nil, nil, err
	}

	sess, err := store.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("not logged in: %w", err)
	}

	m := newManager(c)

	// A zero expiry forces a refresh before the first call.
	client := m.NewClient(sess.UID, sess.AccessToken, sess.RefreshToken, time.Time{})

	client.AddAuthHandler(func(auth stowhub.Auth) {
		sess.AccessToken = auth.AccessToken
		sess.RefreshToken = auth.RefreshToken

		if err := store.Save(sess); err != nil {
			logrus.WithError(err).Warn("Failed to save refreshed session")
		}
	})

	client.AddDeauthHandler(func() {
		logrus.Warn("Session expired, please log in again")

		if err := store.Clear(); err != nil {
			logrus.WithError(err).Warn("Failed to clear session")
		}
	})

	return store, client, m, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func defaultSessionDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".stowhub-admin"
	}

	return filepath.Join(dir, "stowhub-admin")
}

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/goph-social/internal/model"
)

func initCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the collections and seed sample users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// start already initialised both stores
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"initialized": true,
				"backend":     a.cfg.Backend,
			})
		},
	}
}

func usersCmd(a *app) *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Search and add users"}

	users.AddCommand(&cobra.Command{
		Use:   "search [query]",
		Short: "Case-insensitive search by name or username",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := ""
			if len(args) == 1 {
				q = args[0]
			}
			return printJSON(cmd.OutOrStdout(), a.friends.SearchUsers(cmd.Context(), q))
		},
	})

	var u model.User
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := a.friends.AddUser(cmd.Context(), u)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	add.Flags().StringVar(&u.Username, "username", "", "username")
	add.Flags().StringVar(&u.Name, "name", "", "display name")
	add.Flags().StringVar(&u.Bio, "bio", "", "short bio")
	add.Flags().StringVar(&u.Avatar, "avatar", "", "avatar URL")
	add.Flags().IntVar(&u.Points, "points", 0, "points")
	users.AddCommand(add)
	return users
}

func friendsCmd(a *app) *cobra.Command {
	friends := &cobra.Command{Use: "friends", Short: "Manage friendships"}

	var page, limit int
	var sortBy string
	list := &cobra.Command{
		Use:   "list",
		Short: "List friends one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.friends.GetFriends(cmd.Context(), page, limit, sortBy)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&limit, "limit", 20, "page size")
	list.Flags().StringVar(&sortBy, "sort", "recent", "sort order: recent, name, points")

	friends.AddCommand(list,
		&cobra.Command{
			Use:   "add-bots <count>",
			Short: "Generate bot users and befriend them",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := parseCount(args[0])
				if err != nil {
					return err
				}
				added, err := a.friends.AddBotFriends(cmd.Context(), n)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), added)
			},
		},
		&cobra.Command{
			Use:   "remove <friendship-id>",
			Short: "Remove a friendship",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				left, err := a.friends.RemoveFriend(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), left)
			},
		},
		&cobra.Command{
			Use:   "any",
			Short: "Report whether any friendship exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printJSON(cmd.OutOrStdout(), a.friends.HasAnyFriends(cmd.Context()))
			},
		},
	)
	return friends
}

func requestsCmd(a *app) *cobra.Command {
	requests := &cobra.Command{Use: "requests", Short: "Manage incoming friend requests"}

	respond := func(action string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			res, err := a.friends.RespondToFriendRequest(cmd.Context(), args[0], action)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		}
	}

	requests.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List pending requests",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printJSON(cmd.OutOrStdout(), a.friends.GetPendingRequests(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "send <user-id>",
			Short: "Record a friend request from a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				req, err := a.friends.SendFriendRequest(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), req)
			},
		},
		&cobra.Command{
			Use:   "accept <request-id>",
			Short: "Accept a request",
			Args:  cobra.ExactArgs(1),
			RunE:  respond("accepted"),
		},
		&cobra.Command{
			Use:   "reject <request-id>",
			Short: "Reject a request",
			Args:  cobra.ExactArgs(1),
			RunE:  respond("rejected"),
		},
	)
	return requests
}

func chatCmd(a *app) *cobra.Command {
	chat := &cobra.Command{Use: "chat", Short: "Conversations and messages"}

	var from string
	receive := &cobra.Command{
		Use:   "receive <conversation-id> <text...>",
		Short: "Simulate an incoming message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.messages.ReceiveMessage(cmd.Context(), args[0], from, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
	receive.Flags().StringVar(&from, "from", "", "sender id (defaults to the counterpart)")

	var before string
	var limit int
	messages := &cobra.Command{
		Use:   "messages <conversation-id>",
		Short: "List messages, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cursor *time.Time
			if before != "" {
				t, err := time.Parse(time.RFC3339Nano, before)
				if err != nil {
					return fmt.Errorf("--before: %w", err)
				}
				cursor = &t
			}
			out, err := a.messages.GetMessages(cmd.Context(), args[0], cursor, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	messages.Flags().StringVar(&before, "before", "", "only messages created before this RFC3339 time")
	messages.Flags().IntVar(&limit, "limit", 20, "maximum number of messages")

	var page, pageLimit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations by recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), a.messages.GetConversations(cmd.Context(), page, pageLimit))
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&pageLimit, "limit", 20, "page size")

	chat.AddCommand(
		&cobra.Command{
			Use:   "open <friend-id>",
			Short: "Get or create the conversation with a friend",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.messages.GetOrCreateConversation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), c)
			},
		},
		&cobra.Command{
			Use:   "send <conversation-id> <text...>",
			Short: "Send a message",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.messages.SendMessage(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), m)
			},
		},
		receive,
		messages,
		&cobra.Command{
			Use:   "read <conversation-id>",
			Short: "Mark a conversation as read",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ok, err := a.messages.MarkAsRead(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), ok)
			},
		},
		list,
	)
	return chat
}

func leaderboardCmd(a *app) *cobra.Command {
	var kind, period string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank friends with synthetic scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.friends.GetFriendsLeaderboard(cmd.Context(), kind, period)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&kind, "type", "points", "ranking type: points, challenges")
	cmd.Flags().StringVar(&period, "period", "week", "display period label")
	return cmd
}

func shareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "share <challenge-id> <friend-id>...",
		Short: "Share a challenge with friends",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ack, err := a.friends.ShareChallenge(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ack)
		},
	}
}

func botsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bots <count>",
		Short: "Print generated bot users without storing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseCount(args[0])
			if err != nil {
				return err
			}
			bots, err := a.friends.GenerateBotUsers(n)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bots)
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.friends.Reset(cmd.Context()); err != nil {
				return err
			}
			if err := a.messages.Reset(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"reset": true})
		},
	}
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("count must be a positive integer, got %q", s)
	}
	return n, nil
}

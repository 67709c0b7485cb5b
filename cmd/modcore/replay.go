package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nutsandbolts/modcore/automod/blockstore"
	"github.com/nutsandbolts/modcore/automod/cachestore"
	"github.com/nutsandbolts/modcore/automod/countstore"
	"github.com/nutsandbolts/modcore/automod/dispatch"
	"github.com/nutsandbolts/modcore/automod/engine"
	"github.com/nutsandbolts/modcore/automod/event"
	"github.com/nutsandbolts/modcore/automod/setstore"
	"github.com/nutsandbolts/modcore/automod/spam"
	"github.com/nutsandbolts/modcore/automod/tags"
	"github.com/nutsandbolts/modcore/platform/discord"

	"github.com/bwmarrin/discordgo"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

// Flags shared by every command which builds an engine.
var engineFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "content-capacity",
		Usage:   "identical messages allowed per channel in the content window",
		Value:   spam.DefaultContentCapacity,
		EnvVars: []string{"MODCORE_CONTENT_CAPACITY"},
	},
	&cli.DurationFlag{
		Name:    "content-period",
		Value:   spam.DefaultContentPeriod,
		EnvVars: []string{"MODCORE_CONTENT_PERIOD"},
	},
	&cli.IntFlag{
		Name:    "channel-capacity",
		Usage:   "messages allowed per channel in the channel window",
		Value:   spam.DefaultChannelCapacity,
		EnvVars: []string{"MODCORE_CHANNEL_CAPACITY"},
	},
	&cli.DurationFlag{
		Name:    "channel-period",
		Value:   spam.DefaultChannelPeriod,
		EnvVars: []string{"MODCORE_CHANNEL_PERIOD"},
	},
	&cli.BoolFlag{
		Name:    "normalize-content",
		Usage:   "ignore case, punctuation and diacritics when comparing message content",
		EnvVars: []string{"MODCORE_NORMALIZE_CONTENT"},
	},
	&cli.StringFlag{
		Name:    "redis-url",
		Usage:   "redis connection URL for shared spam windows and deny-lists (in-memory if empty)",
		EnvVars: []string{"MODCORE_REDIS_URL"},
	},
	&cli.StringFlag{
		Name:    "bot-user-id",
		Usage:   "account ID of the bot; its messages are ignored",
		EnvVars: []string{"MODCORE_BOT_USER_ID"},
	},
	&cli.StringFlag{
		Name:    "owner-id",
		Usage:   "account ID of the bot owner; may edit the global deny-list",
		EnvVars: []string{"MODCORE_OWNER_ID"},
	},
	&cli.BoolFlag{
		Name:    "escalate-block",
		Usage:   "add detected spammers to the scope deny-list",
		EnvVars: []string{"MODCORE_ESCALATE_BLOCK"},
	},
	&cli.IntFlag{
		Name:    "escalation-quota",
		Usage:   "maximum spam escalations per scope per day",
		Value:   engine.DefaultEscalationQuota,
		EnvVars: []string{"MODCORE_ESCALATION_QUOTA"},
	},
	&cli.StringFlag{
		Name:    "slack-webhook-url",
		Usage:   "full URL of slack webhook for spam and action notifications",
		EnvVars: []string{"SLACK_WEBHOOK_URL"},
	},
	&cli.IntFlag{
		Name:    "max-targets",
		Usage:   "maximum targets per moderation action",
		Value:   dispatch.DefaultMaxTargets,
		EnvVars: []string{"MODCORE_MAX_TARGETS"},
	},
	&cli.Float64Flag{
		Name:    "action-rate-limit",
		Usage:   "max platform calls per second during actions (unlimited if zero)",
		EnvVars: []string{"MODCORE_ACTION_RATE_LIMIT"},
	},
	&cli.StringFlag{
		Name:    "reserved-words-file",
		Usage:   "JSON file of named sets; the 'tag-reserved' set replaces the default reserved tag words",
		EnvVars: []string{"MODCORE_RESERVED_WORDS_FILE"},
	},
	&cli.BoolFlag{
		Name:    "escalate-ban",
		Usage:   "ban detected spammers through the platform (guild messages only)",
		EnvVars: []string{"MODCORE_ESCALATE_BAN"},
	},
	&cli.StringFlag{
		Name:    "discord-token",
		Usage:   "discord bot token; platform actions (kick, ban, roles) go to the discord API",
		EnvVars: []string{"MODCORE_DISCORD_TOKEN", "DISCORD_TOKEN"},
	},
	&cli.BoolFlag{
		Name:    "dry-run",
		Usage:   "log platform actions instead of carrying them out",
		EnvVars: []string{"MODCORE_DRY_RUN"},
	},
}

var replayCmd = &cli.Command{
	Name:      "replay",
	Usage:     "run a JSON lines file of messages and commands through the engine, printing one result per line",
	ArgsUsage: `<file.jsonl|->`,
	Flags:     engineFlags,
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context
		logger := slog.Default().With("component", "replay")

		shutdown, err := configOTEL("modcore")
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		defer shutdown()

		eng, err := configEngine(cctx, logger, nil)
		if err != nil {
			return err
		}

		in := os.Stdin
		if p := cctx.Args().First(); p != "" && p != "-" {
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		stats, err := replay(ctx, eng, in, os.Stdout)
		if err != nil {
			return fmt.Errorf("replay failed after %d lines: %w", stats.Lines, err)
		}
		logger.Info("replay complete", "lines", stats.Lines, "messages", stats.Messages, "commands", stats.Commands, "errors", stats.Errors, "spam", stats.Verdicts[engine.VerdictSpam], "blocked", stats.Verdicts[engine.VerdictBlocked])
		return nil
	},
}

// configEngine builds an engine from engineFlags. Platform actions go to session if it is not nil, else to a REST-only session when a discord token is configured; --dry-run overrides both.
func configEngine(cctx *cli.Context, logger *slog.Logger, session *discordgo.Session) (*engine.Engine, error) {
	cfg := engine.Config{
		BotUserID: cctx.String("bot-user-id"),
		OwnerID:   cctx.String("owner-id"),
		Escalation: engine.Escalation{
			Block:      cctx.Bool("escalate-block"),
			Ban:        cctx.Bool("escalate-ban"),
			Notify:     cctx.String("slack-webhook-url") != "",
			DailyQuota: cctx.Int("escalation-quota"),
		},
	}
	spamCfg := spam.Config{
		ContentCapacity:  cctx.Int("content-capacity"),
		ContentPeriod:    cctx.Duration("content-period"),
		ChannelCapacity:  cctx.Int("channel-capacity"),
		ChannelPeriod:    cctx.Duration("channel-period"),
		NormalizeContent: cctx.Bool("normalize-content"),
	}
	// an explicit zero from a flag is an error, not the default
	if err := spamCfg.ValidateExplicit(); err != nil {
		return nil, fmt.Errorf("spam windows: %w", err)
	}
	dispatchCfg := dispatch.Config{
		MaxTargets: cctx.Int("max-targets"),
	}

	eng, err := engine.NewEngine(cfg, spamCfg, dispatchCfg, logger)
	if err != nil {
		return nil, err
	}

	if limit := cctx.Float64("action-rate-limit"); limit > 0 {
		eng.Dispatcher.Limiter = rate.NewLimiter(rate.Limit(limit), 1)
	}

	if redisURL := cctx.String("redis-url"); redisURL != "" {
		counts, err := countstore.NewRedisCountStore(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		eng.Spam, err = spam.NewSharedRegistry(spamCfg, counts, logger)
		if err != nil {
			return nil, err
		}
		eng.Blocks, err = blockstore.NewRedisBlockStore(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("using redis for spam windows and deny-lists")
	}

	if p := cctx.String("reserved-words-file"); p != "" {
		sets := setstore.NewMemSetStore()
		sets.Add(tags.ReservedSet, tags.DefaultReservedWords...)
		if err := sets.LoadFromFileJSON(p); err != nil {
			return nil, fmt.Errorf("loading reserved words: %w", err)
		}
		eng.Tags = tags.NewRegistry(sets, logger)
	}

	if url := cctx.String("slack-webhook-url"); url != "" {
		eng.Notifier = engine.NewSlackNotifier(url)
	}

	token := cctx.String("discord-token")
	switch {
	case cctx.Bool("dry-run"):
		eng.Platform = engine.NewDryRunPlatform(logger)
		logger.Info("dry run, platform actions will only be logged")
	case session != nil || token != "":
		if session == nil {
			session, err = newDiscordSession(token)
			if err != nil {
				return nil, err
			}
		}
		p, err := configPlatform(cctx, session, logger)
		if err != nil {
			return nil, err
		}
		eng.Platform = p
	}
	return eng, nil
}

func newDiscordSession(token string) (*discordgo.Session, error) {
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	session, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	return session, nil
}

// configPlatform wraps session as the engine platform. Guild hierarchy is cached in redis when --redis-url is set, so several processes share it.
func configPlatform(cctx *cli.Context, session *discordgo.Session, logger *slog.Logger) (*discord.Platform, error) {
	var cache cachestore.CacheStore
	if redisURL := cctx.String("redis-url"); redisURL != "" {
		rcache, err := cachestore.NewRedisCacheStore(redisURL, discord.DefaultHierarchyTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cache = rcache
	}
	return discord.NewPlatform(session, cache, logger), nil
}

type replayStats struct {
	Lines    int
	Messages int
	Commands int
	Errors   int
	Verdicts map[engine.Verdict]int
}

// One output line per input line.
type replayResult struct {
	Line        int               `json:"line"`
	ID          string            `json:"id,omitempty"`
	Scope       string            `json:"scope,omitempty"`
	Author      string            `json:"author,omitempty"`
	Verdict     engine.Verdict    `json:"verdict,omitempty"`
	Command     string            `json:"command,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Outcomes    map[string]string `json:"outcomes,omitempty"`
	Dropped     []string          `json:"dropped,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// replay processes in as JSON lines of event.CommandEvent. Lines without a command are messages. Messages are evaluated against their own created_at timestamps, so a replay is deterministic for a given input.
func replay(ctx context.Context, eng *engine.Engine, in io.Reader, out io.Writer) (*replayStats, error) {
	stats := &replayStats{Verdicts: make(map[engine.Verdict]int)}
	enc := json.NewEncoder(out)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		stats.Lines++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		res := replayResult{Line: stats.Lines}
		var ce event.CommandEvent
		if err := json.Unmarshal(line, &ce); err != nil {
			stats.Errors++
			res.Error = fmt.Sprintf("invalid JSON: %v", err)
			if err := enc.Encode(res); err != nil {
				return stats, err
			}
			continue
		}
		res.ID = ce.ID
		res.Scope = ce.Scope()
		res.Author = ce.AuthorID

		if ce.IsCommand() {
			stats.Commands++
			res.Command = ce.Command
			if err := runCommand(ctx, eng, &ce, &res); err != nil {
				stats.Errors++
				res.Error = err.Error()
			}
		} else {
			stats.Messages++
			verdict, err := eng.ProcessMessage(ctx, &ce.Message)
			if err != nil {
				stats.Errors++
				res.Error = err.Error()
			}
			res.Verdict = verdict
			stats.Verdicts[verdict]++
		}

		if err := enc.Encode(res); err != nil {
			return stats, err
		}
	}
	return stats, scanner.Err()
}

func runCommand(ctx context.Context, eng *engine.Engine, ce *event.CommandEvent, res *replayResult) error {
	scope := ce.Scope()
	action := dispatch.Action(ce.Command)
	switch action {
	case dispatch.ActionBlock, dispatch.ActionUnblock, dispatch.ActionKick, dispatch.ActionBan, dispatch.ActionUnban, dispatch.ActionSoftban:
		req, err := actionRequest(ce, ce.Args)
		if err != nil {
			return err
		}
		rep, err := eng.RunAction(ctx, scope, req)
		if err != nil {
			return err
		}
		fillReport(res, rep)
		return nil
	case dispatch.ActionAddRole, dispatch.ActionRemoveRole:
		// first argument is the role
		if len(ce.Args) < 2 {
			return fmt.Errorf("%s: expected a role and at least one target", action)
		}
		req, err := actionRequest(ce, ce.Args[1:])
		if err != nil {
			return err
		}
		rep, err := eng.RunRoleAction(ctx, scope, ce.Args[0], req)
		if err != nil {
			return err
		}
		fillReport(res, rep)
		return nil
	case "tag":
		return runTagCommand(ctx, eng.Tags, scope, ce, res)
	}
	return fmt.Errorf("unknown command: %s", ce.Command)
}

func actionRequest(ce *event.CommandEvent, targets []string) (dispatch.Request[string], error) {
	actorName := ce.AuthorName
	if actorName == "" {
		actorName = ce.AuthorID
	}
	reason, err := dispatch.FormatReason(actorName, ce.AuthorID, "")
	if err != nil {
		return dispatch.Request[string]{}, err
	}
	return dispatch.Request[string]{
		Action:  dispatch.Action(ce.Command),
		ActorID: ce.AuthorID,
		Targets: targets,
		Reason:  reason,
	}, nil
}

func fillReport(res *replayResult, rep *dispatch.Report[string]) {
	res.Summary = rep.Summary()
	res.Outcomes = make(map[string]string, len(rep.Results))
	for _, r := range rep.Results {
		res.Outcomes[r.Target] = r.Outcome.String()
	}
	res.Dropped = rep.Dropped
}

// Tag commands: ["create", name, content], ["alias", old, new], or a name to look up.
func runTagCommand(ctx context.Context, reg *tags.Registry, scope string, ce *event.CommandEvent, res *replayResult) error {
	args := ce.Args
	if len(args) == 0 {
		return fmt.Errorf("tag: missing name")
	}
	switch args[0] {
	case "create":
		if len(args) != 3 {
			return fmt.Errorf("tag create: expected name and content")
		}
		if err := reg.Create(ctx, scope, ce.AuthorID, args[1], args[2]); err != nil {
			return err
		}
		res.Summary = "created"
		return nil
	case "alias":
		if len(args) != 3 {
			return fmt.Errorf("tag alias: expected existing name and new alias")
		}
		err := reg.Alias(ctx, scope, args[1], args[2])
		var nf *tags.NotFoundError
		if errors.As(err, &nf) {
			res.Suggestions = nf.Suggestions
		}
		if err != nil {
			return err
		}
		res.Summary = "aliased"
		return nil
	}

	tag, err := reg.Lookup(ctx, scope, strings.Join(args, " "))
	var nf *tags.NotFoundError
	if errors.As(err, &nf) {
		res.Suggestions = nf.Suggestions
	}
	if err != nil {
		return err
	}
	res.Summary = tag.Content
	return nil
}

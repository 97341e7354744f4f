package db

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Pipeline assembles an aggregation query over a base table in explicit
// stages: match (filter), join, compute (derived fields), project, order.
// The two read-model queries are built as named pipeline constructors so
// they can be inspected and tested without a database.
//
// Fragments use ? placeholders; Compile rewrites them to positional $n
// arguments in output order.
type Pipeline struct {
	base     string
	alias    string
	fields   []fragment
	joins    []string
	matches  []fragment
	orderBys []string
}

type fragment struct {
	sql  string
	args []any
}

func NewPipeline(table, alias string) *Pipeline {
	return &Pipeline{base: table, alias: alias}
}

// Match adds a filter stage. expr may contain ? placeholders.
func (p *Pipeline) Match(expr string, args ...any) *Pipeline {
	p.matches = append(p.matches, fragment{sql: expr, args: args})
	return p
}

// Join adds an inner join stage against a foreign table.
func (p *Pipeline) Join(table, alias, on string) *Pipeline {
	p.joins = append(p.joins, "JOIN "+table+" "+alias+" ON "+on)
	return p
}

// Project adds plain columns to the output row.
func (p *Pipeline) Project(columns ...string) *Pipeline {
	for _, col := range columns {
		p.fields = append(p.fields, fragment{sql: col})
	}
	return p
}

// ComputeCount adds a derived field counting rows of a foreign table that
// match expr, the relational rendition of a join-then-size stage.
func (p *Pipeline) ComputeCount(as, table, expr string, args ...any) *Pipeline {
	p.fields = append(p.fields, fragment{
		sql:  "(SELECT COUNT(*) FROM " + table + " WHERE " + expr + ") AS " + as,
		args: args,
	})
	return p
}

// ComputeExists adds a derived boolean field that is true when at least one
// row of a foreign table matches expr.
func (p *Pipeline) ComputeExists(as, table, expr string, args ...any) *Pipeline {
	p.fields = append(p.fields, fragment{
		sql:  "EXISTS(SELECT 1 FROM " + table + " WHERE " + expr + ") AS " + as,
		args: args,
	})
	return p
}

// OrderBy adds an ordering stage.
func (p *Pipeline) OrderBy(expr string) *Pipeline {
	p.orderBys = append(p.orderBys, expr)
	return p
}

// Compile renders the pipeline to a single SQL statement plus its
// positional arguments.
func (p *Pipeline) Compile() (string, []any) {
	var args []any
	next := func() string {
		return "$" + strconv.Itoa(len(args))
	}
	bind := func(f fragment) string {
		out := f.sql
		for _, a := range f.args {
			args = append(args, a)
			out = strings.Replace(out, "?", next(), 1)
		}
		return out
	}

	fields := make([]string, 0, len(p.fields))
	for _, f := range p.fields {
		fields = append(fields, bind(f))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(p.base)
	if p.alias != "" {
		b.WriteString(" ")
		b.WriteString(p.alias)
	}
	for _, j := range p.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(p.matches) > 0 {
		conds := make([]string, 0, len(p.matches))
		for _, m := range p.matches {
			conds = append(conds, bind(m))
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	if len(p.orderBys) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(p.orderBys, ", "))
	}

	return b.String(), args
}

// ChannelProfilePipeline is the channel read-model: match the channel by
// normalized username, count subscriber edges and subscribed-to edges, and
// compute whether the viewer appears in the channel's subscriber set.
// Counts are over raw edges; duplicate subscriptions inflate them.
// The projection excludes password_hash and refresh_token_hash.
func ChannelProfilePipeline(username string, viewerID uuid.NullUUID) *Pipeline {
	return NewPipeline("users", "u").
		Match("u.username = ?", NormalizeUsername(username)).
		Project(
			"u.id", "u.username", "u.full_name", "u.email",
			"u.avatar_url", "u.cover_image_url",
		).
		ComputeCount("subscribers_count", "subscriptions s",
			"s.channel_id = u.id").
		ComputeCount("channels_subscribed_to_count", "subscriptions s",
			"s.subscriber_id = u.id").
		ComputeExists("is_subscribed", "subscriptions s",
			"s.channel_id = u.id AND s.subscriber_id = ?", viewerID)
}

// WatchHistoryPipeline is the watch-history read-model: the user's history
// entries in stored order, each joined to its video and the video joined to
// its single owner row, with the owner projected down to name, username and
// avatar.
func WatchHistoryPipeline(userID uuid.UUID) *Pipeline {
	return NewPipeline("watch_history", "wh").
		Join("videos", "v", "v.id = wh.video_id").
		Join("users", "o", "o.id = v.owner_id").
		Match("wh.user_id = ?", userID).
		Project(
			"v.id", "v.title", "v.description", "v.video_url",
			"v.thumbnail_url", "v.duration_ms", "v.views", "v.created_at",
			"o.full_name", "o.username", "o.avatar_url",
		).
		OrderBy("wh.position")
}

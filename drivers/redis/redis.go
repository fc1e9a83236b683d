// Package redis provides a backend that keeps entities in redis.
//
// Each entity is a hash at <prefix>:entity:<name>, with fields location,
// modified (RFC 3339, optional) and info (a JSON object, optional).  The
// declared capabilities are the members of the set <prefix>:capabilities.
// Entity references look like <scheme>:///<name>.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/birkland/assetresolv"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Identifier of the redis backend
const Identifier = "org.openassetio.examples.manager.redis"

// Defaults
const (
	DefaultPrefix = "assetresolv"
	DefaultScheme = "asset"
)

// Hash fields of an entity
const (
	FieldLocation = "location"
	FieldModified = "modified"
	FieldInfo     = "info"
)

// Config configures the backend
type Config struct {
	Prefix string
	Scheme string
}

// Backend resolves entity references from redis
type Backend struct {
	client redis.UniversalClient
	prefix string
	scheme string
}

var _ assetresolv.Backend = (*Backend)(nil)

// New creates a backend on top of a redis client
func New(client redis.UniversalClient, cfg Config) *Backend {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Scheme == "" {
		cfg.Scheme = DefaultScheme
	}
	return &Backend{
		client: client,
		prefix: cfg.Prefix,
		scheme: strings.ToLower(cfg.Scheme),
	}
}

// Dial connects to redis at the given address, and verifies the connection
func Dial(ctx context.Context, addr string, cfg Config) (*Backend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "could not connect to redis at %s", addr)
	}
	return New(client, cfg), nil
}

// Identifier names the backend
func (b *Backend) Identifier() string {
	return Identifier
}

// Scheme of the references this backend owns
func (b *Backend) Scheme() string {
	return b.scheme
}

// Close closes the underlying client
func (b *Backend) Close() error {
	return b.client.Close()
}

// Ref is the entity reference of the named entity
func (b *Backend) Ref(name string) string {
	return b.scheme + ":///" + url.PathEscape(name)
}

func (b *Backend) capabilitiesKey() string {
	return b.prefix + ":capabilities"
}

func (b *Backend) entityKey(name string) string {
	return b.prefix + ":entity:" + name
}

// Declare adds capabilities to the declared set
func (b *Backend) Declare(ctx context.Context, caps ...assetresolv.Capability) error {
	members := make([]interface{}, 0, len(caps))
	for _, c := range caps {
		members = append(members, c.String())
	}
	if len(members) == 0 {
		return nil
	}
	return errors.Wrap(b.client.SAdd(ctx, b.capabilitiesKey(), members...).Err(),
		"could not declare capabilities")
}

// Put stores an entity under the given name, replacing whatever was there
func (b *Backend) Put(ctx context.Context, name string, e assetresolv.Entity) error {
	if name == "" {
		return errors.New("entity name is empty")
	}

	fields := map[string]interface{}{FieldLocation: e.Location}
	if !e.ModTime.IsZero() {
		fields[FieldModified] = e.ModTime.UTC().Format(time.RFC3339Nano)
	}
	if len(e.Info) > 0 {
		info, err := json.Marshal(e.Info)
		if err != nil {
			return errors.Wrapf(err, "could not encode info of %s", name)
		}
		fields[FieldInfo] = string(info)
	}

	key := b.entityKey(name)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		return nil
	})
	return errors.Wrapf(err, "could not store entity %s", name)
}

// HasCapability tells whether the capability is a member of the declared set
func (b *Backend) HasCapability(ctx context.Context, c assetresolv.Capability) (bool, error) {
	ok, err := b.client.SIsMember(ctx, b.capabilitiesKey(), c.String()).Result()
	if err != nil {
		return false, errors.Wrapf(err, "could not query capability %s", c)
	}
	return ok, nil
}

// Resolve resolves a batch of references with a single pipelined round trip
func (b *Backend) Resolve(ctx context.Context, refs []string) ([]assetresolv.BatchResult, error) {
	results := make([]assetresolv.BatchResult, len(refs))
	cmds := make([]*redis.MapStringStringCmd, len(refs))

	pipe := b.client.Pipeline()
	for i, ref := range refs {
		name, perr := b.parseRef(ref)
		if perr != nil {
			results[i].Err = perr
			continue
		}
		cmds[i] = pipe.HGetAll(ctx, b.entityKey(name))
	}

	if pipe.Len() > 0 {
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return nil, errors.Wrap(err, "could not resolve batch")
		}
	}

	for i, cmd := range cmds {
		if cmd == nil {
			continue
		}
		results[i] = toResult(refs[i], cmd.Val())
	}

	return results, nil
}

func toResult(ref string, fields map[string]string) assetresolv.BatchResult {
	fail := func(format string, args ...interface{}) assetresolv.BatchResult {
		return assetresolv.BatchResult{Err: &assetresolv.BatchElementError{
			Code:    assetresolv.CodeEntityResolutionError,
			Message: fmt.Sprintf(format, args...),
		}}
	}

	if len(fields) == 0 {
		return fail("entity %s not found", ref)
	}

	e := assetresolv.Entity{
		Location: fields[FieldLocation],
		Info:     assetresolv.Info{},
	}
	if e.Location == "" {
		return fail("entity %s has no location", ref)
	}

	if mod, ok := fields[FieldModified]; ok && mod != "" {
		t, err := time.Parse(time.RFC3339Nano, mod)
		if err != nil {
			return fail("entity %s has a bad modification time %q", ref, mod)
		}
		e.ModTime = t
	}

	if raw, ok := fields[FieldInfo]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Info); err != nil {
			return fail("entity %s has bad info: %s", ref, err)
		}
	}

	return assetresolv.BatchResult{Entity: e}
}

func (b *Backend) parseRef(ref string) (string, *assetresolv.BatchElementError) {
	malformed := func(why string) *assetresolv.BatchElementError {
		return &assetresolv.BatchElementError{
			Code:    assetresolv.CodeMalformedEntityReference,
			Message: fmt.Sprintf("malformed reference %s: %s", ref, why),
		}
	}

	scheme := b.scheme + ":"
	if len(ref) < len(scheme) || !strings.EqualFold(ref[:len(scheme)], scheme) {
		return "", &assetresolv.BatchElementError{
			Code:    assetresolv.CodeInvalidEntityReference,
			Message: fmt.Sprintf("%s is not a %s reference", ref, b.scheme),
		}
	}

	rest := ref[len(scheme):]
	if !strings.HasPrefix(rest, "///") {
		return "", malformed("expected " + scheme + "///<name>")
	}
	rest = rest[3:]
	if strings.ContainsAny(rest, "?#") {
		return "", malformed("queries are not supported")
	}

	name, err := url.PathUnescape(rest)
	if err != nil {
		return "", malformed(err.Error())
	}
	if name == "" {
		return "", malformed("empty entity name")
	}
	return name, nil
}

package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/streammarks/internal/kv"
)

// commitScript evaluates every check, then applies every mutation with one
// fresh versionstamp. A failed check returns 0 and writes nothing. Sums are
// validated before the first write so a bad counter cannot leave a partial commit.
//
// KEYS: [1]=versionstamp sequence, [2..1+nchecks]=checked keys, then one key per mutation
// ARGV: [1]=nchecks, [2..1+nchecks]=expected stamps, [2+nchecks]=nmut,
//
//	then (op, value, ttl_ms) per mutation
var commitScript = redis.NewScript(`
local nchecks = tonumber(ARGV[1])
for i = 1, nchecks do
  local current = redis.call('HGET', KEYS[i + 1], 'vs')
  if not current then current = '' end
  if current ~= ARGV[i + 1] then
    return 0
  end
end

local nmut = tonumber(ARGV[nchecks + 2])
local base = nchecks + 3
for j = 1, nmut do
  if ARGV[base + (j - 1) * 3] == 'sum' then
    local cur = redis.call('HGET', KEYS[1 + nchecks + j], 'v')
    if cur and not string.match(cur, '^%d+$') then
      return redis.error_reply('sum target is not a counter: ' .. KEYS[1 + nchecks + j])
    end
  end
end

local stamp = string.format('%020d', redis.call('INCR', KEYS[1]))
for j = 1, nmut do
  local key = KEYS[1 + nchecks + j]
  local i = base + (j - 1) * 3
  local op, val, ttl = ARGV[i], ARGV[i + 1], tonumber(ARGV[i + 2])
  if op == 'set' then
    redis.call('DEL', key)
    redis.call('HSET', key, 'v', val, 'vs', stamp)
    if ttl > 0 then
      redis.call('PEXPIRE', key, ttl)
    end
  elseif op == 'sum' then
    redis.call('HINCRBY', key, 'v', val)
    redis.call('HSET', key, 'vs', stamp)
  elseif op == 'delete' then
    redis.call('DEL', key)
  end
end
return stamp
`)

// Commit applies op atomically through commitScript
func (s *Store) Commit(ctx context.Context, op *kv.AtomicOp) (kv.CommitResult, error) {
	keys := make([]string, 0, 1+len(op.Checks)+len(op.Mutations))
	args := make([]interface{}, 0, 2+len(op.Checks)+3*len(op.Mutations))

	keys = append(keys, s.keys.Versionstamp())
	args = append(args, len(op.Checks))
	for _, c := range op.Checks {
		keys = append(keys, s.keys.Encode(c.Key))
		args = append(args, c.Versionstamp)
	}

	args = append(args, len(op.Mutations))
	for _, m := range op.Mutations {
		keys = append(keys, s.keys.Encode(m.Key))
		switch m.Kind {
		case kv.MutationSet:
			args = append(args, string(kv.MutationSet), m.Value, m.TTL.Milliseconds())
		case kv.MutationSum:
			args = append(args, string(kv.MutationSum), strconv.FormatUint(m.Delta, 10), 0)
		case kv.MutationDelete:
			args = append(args, string(kv.MutationDelete), "", 0)
		default:
			return kv.CommitResult{}, fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}

	res, err := commitScript.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return kv.CommitResult{}, fmt.Errorf("commit script failed: %w", err)
	}

	switch v := res.(type) {
	case string:
		return kv.CommitResult{OK: true, Versionstamp: v}, nil
	case int64:
		if v == 0 {
			return kv.CommitResult{OK: false}, nil
		}
	}
	return kv.CommitResult{}, fmt.Errorf("unexpected commit reply %T(%v)", res, res)
}

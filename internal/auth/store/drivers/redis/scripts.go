package redis

import goredis "github.com/redis/go-redis/v9"

// create(kb, ab) stores a record using KEYS[kb..kb+3] as
// (record, hash index, user set, expiry index) and ARGV[ab+1..ab+8] as
// (id, user_id, token_hash, expires_at, user_agent, ip_address, created_at,
// pexpireat). It refuses to overwrite an existing id or hash.
const createFn = `
local function taken(kb)
  return redis.call("EXISTS", KEYS[kb]) == 1 or redis.call("EXISTS", KEYS[kb + 1]) == 1
end

local function create(kb, ab)
  redis.call("HSET", KEYS[kb],
    "user_id", ARGV[ab + 2],
    "token_hash", ARGV[ab + 3],
    "expires_at", ARGV[ab + 4],
    "revoked", "0",
    "user_agent", ARGV[ab + 5],
    "ip_address", ARGV[ab + 6],
    "created_at", ARGV[ab + 7])
  redis.call("SET", KEYS[kb + 1], ARGV[ab + 1])
  redis.call("PEXPIREAT", KEYS[kb], ARGV[ab + 8])
  redis.call("PEXPIREAT", KEYS[kb + 1], ARGV[ab + 8])
  redis.call("SADD", KEYS[kb + 2], ARGV[ab + 1])
  redis.call("ZADD", KEYS[kb + 3], ARGV[ab + 4], ARGV[ab + 1])
end
`

const (
	statusNotFound int64 = -1
	statusConflict int64 = -2
	statusNoop     int64 = 0
	statusOK       int64 = 1
)

var createLua = goredis.NewScript(createFn + `
if taken(1) then
  return -2
end
create(1, 0)
return 1
`)

// KEYS[1] record; ARGV[1] now, ARGV[2] required owner or "".
var revokeLua = goredis.NewScript(`
local f = redis.call("HMGET", KEYS[1], "revoked", "user_id")
if not f[1] then
  return -1
end
if ARGV[2] ~= "" and f[2] ~= ARGV[2] then
  return -1
end
if f[1] ~= "0" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1", "revoked_at", ARGV[1])
return 1
`)

// KEYS[1] old record, KEYS[2..5] next record keys; ARGV[1] now, ARGV[2..9]
// next record fields.
var rotateLua = goredis.NewScript(createFn + `
local revoked = redis.call("HGET", KEYS[1], "revoked")
if not revoked then
  return -1
end
if revoked ~= "0" then
  return 0
end
if taken(2) then
  return -2
end
redis.call("HSET", KEYS[1], "revoked", "1", "revoked_at", ARGV[1])
create(2, 1)
return 1
`)

// KEYS[1] user set; ARGV[1] now, ARGV[2] record key prefix.
var revokeAllLua = goredis.NewScript(`
local n = 0
for _, id in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  local k = ARGV[2] .. id
  if redis.call("HGET", k, "revoked") == "0" then
    redis.call("HSET", k, "revoked", "1", "revoked_at", ARGV[1])
    n = n + 1
  end
end
return n
`)

// KEYS[1] expiry index; ARGV[1] cutoff, ARGV[2..4] record, hash and user
// key prefixes.
var sweepLua = goredis.NewScript(`
local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", "(" .. ARGV[1])
local n = 0
for _, id in ipairs(ids) do
  local k = ARGV[2] .. id
  local f = redis.call("HMGET", k, "user_id", "token_hash")
  if f[1] then
    redis.call("SREM", ARGV[4] .. f[1], id)
    redis.call("DEL", ARGV[3] .. f[2])
    redis.call("DEL", k)
    n = n + 1
  end
  redis.call("ZREM", KEYS[1], id)
end
return n
`)

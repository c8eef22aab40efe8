package store

import "time"

// rpushExpireLuaScript 追加列表元素并设置过期时间的Lua脚本
// 功能：
//  1. RPUSH 追加元素
//  2. PEXPIRE 设置过期时间，RPUSH 出错（例如 WRONGTYPE）时脚本中止，不会改动过期时间
//  3. 返回追加后的列表长度
//
// 参数：
//
//	KEYS[1]: list key
//	ARGV[1]: 过期时间（毫秒）
//	ARGV[2...]: 追加的元素
const rpushExpireLuaScript = `
local listKey = KEYS[1]
local expireMillis = ARGV[1]

local length = redis.call('RPUSH', listKey, unpack(ARGV, 2))
redis.call('PEXPIRE', listKey, expireMillis)

return length
`

// expireMillis 与 go-redis 对 PX 的处理一致，不足 1ms 按 1ms 计
func expireMillis(ttl time.Duration) int64 {
	if ttl > 0 && ttl < time.Millisecond {
		return 1
	}
	return ttl.Milliseconds()
}

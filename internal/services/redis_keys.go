package services

import "time"

const (
	KeyWallet        = "wallet:%d"          // HASH currency -> balance
	KeySeeds         = "seeds:%d"           // HASH active seed pair
	KeyRevealedSeeds = "seeds:%d:revealed"  // LIST of retired pairs, newest first
	KeyRound         = "round:%s"           // round JSON
	KeyUserRounds    = "user:%d:rounds"     // ZSET round id by settle time
	KeyUserLock      = "lock:user:%d"       // per-player settlement lock
	KeyRateLimit     = "ratelimit:%d:%s"

	FieldServerSeed     = "server_seed"
	FieldServerSeedHash = "server_seed_hash"
	FieldClientSeed     = "client_seed"
	FieldNonce          = "nonce"

	TTLUserLock = 10 * time.Second

	MaxRevealedSeeds = 50
	MaxUserRounds    = 1000
)

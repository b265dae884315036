// Package redis connects to the Redis server that backs storage.RedisStorage
// when the session driver is set to "redis".
//
// Config is populated from TASKDESK_REDIS_* environment variables. Connect
// retries the initial ping, and Healthcheck wraps a ping for the CLI's
// "doctor" command:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	store := storage.NewRedisStorage(client, cfg.Namespace)
//
// Errors wrap the go-redis cause with errors.Join so both the sentinel and the
// driver error can be matched.
package redis

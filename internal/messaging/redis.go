package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"autonomous-car/internal/logger"
	"autonomous-car/internal/types"

	"github.com/redis/go-redis/v9"
)

// Keys and channels used on the Redis bus.
const (
	CarHash        = "car"
	CarChannel     = "car"
	ControlList    = "car:control"
	TelemetryLimit = 100000
)

type Callbacks struct {
	StopCallback func() error // "stop" on the control list
}

type RedisClient struct {
	client      *redis.Client
	callbacks   Callbacks
	logger      *logger.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	pollTimeout time.Duration
	streamLimit int64
}

func NewRedisClient(addr string, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		callbacks:   callbacks,
		logger:      l,
		ctx:         ctx,
		cancel:      cancel,
		pollTimeout: 5 * time.Second,
		streamLimit: TelemetryLimit,
	}
}

// Connect pings the server and drops stale control commands left over from
// an earlier run.
func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		r.logger.Infof("Redis connection failed: %v", err)
		return fmt.Errorf("redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")

	if n, err := r.client.Del(r.ctx, ControlList).Result(); err != nil {
		r.logger.Warnf("Failed to clear %s: %v", ControlList, err)
	} else if n > 0 {
		r.logger.Infof("Discarded stale commands on %s", ControlList)
	}
	return nil
}

// StartListening starts the control list listener
func (r *RedisClient) StartListening() error {
	r.logger.Infof("Starting Redis listeners")
	r.wg.Add(1)
	go r.listCommandListener(ControlList, r.handleControlCommand)
	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
			// Short BRPOP timeout so cancellation is noticed between polls
			result, err := r.client.BRPop(r.ctx, r.pollTimeout, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if errors.Is(err, context.Canceled) || r.ctx.Err() != nil {
					r.logger.Infof("Context cancelled, exiting %s listener", key)
					return
				}
				r.logger.Infof("Error reading from %s list: %v", key, err)
				continue
			}

			if len(result) >= 2 { // BRPOP returns [key, value]
				value := result[1]
				r.logger.Debugf("Received command from %s: %s", key, value)
				if err := handler(value); err != nil {
					r.logger.Warnf("Error handling %s command: %v", key, err)
				}
			}
		}
	}
}

func (r *RedisClient) handleControlCommand(value string) error {
	switch value {
	case "stop":
		if r.callbacks.StopCallback == nil {
			return nil
		}
		r.logger.Infof("Remote stop received")
		return r.callbacks.StopCallback()
	default:
		r.logger.Infof("Invalid control command value: %s", value)
		return fmt.Errorf("invalid control command: %s", value)
	}
}

// PublishRun announces the mode and run id of the current run.
func (r *RedisClient) PublishRun(info types.RunInfo) error {
	r.logger.Debugf("Publishing run %d (%s)", info.RunID, info.Mode)

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, CarHash,
		"mode", string(info.Mode),
		"run-id", info.RunID,
		"launch:speed", info.LaunchSpeedKmh,
		"launch:steering", info.LaunchSteering,
	)
	pipe.HDel(r.ctx, CarHash, "lap:state", "lap:outcome", "lap:time")
	pipe.Publish(r.ctx, CarChannel, "run")
	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to publish run: %v", err)
		return err
	}
	return nil
}

// PublishLapState writes the lap state into the car hash and notifies
// subscribers. lap:time is only present after a successful lap.
func (r *RedisClient) PublishLapState(state types.LapState, outcome types.LapOutcome, lapTime float64) error {
	r.logger.Infof("Publishing lap state: %s", state)
	timestamp := time.Now().Format(time.RFC3339)

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, CarHash, "lap:state", string(state), "lap:state:timestamp", timestamp)
	if outcome != types.OutcomeNone {
		pipe.HSet(r.ctx, CarHash, "lap:outcome", string(outcome))
	}
	if outcome == types.OutcomeSuccess {
		pipe.HSet(r.ctx, CarHash, "lap:time", strconv.FormatFloat(lapTime, 'f', 3, 64))
	} else {
		pipe.HDel(r.ctx, CarHash, "lap:time")
	}
	pipe.Publish(r.ctx, CarChannel, "lap:state")
	if _, err := pipe.Exec(r.ctx); err != nil {
		r.logger.Warnf("Failed to publish lap state: %v", err)
		return err
	}
	return nil
}

// TelemetryStream names the stream that carries the records of one run.
func TelemetryStream(mode string, runID int) string {
	return fmt.Sprintf("telemetry:%s:%d", mode, runID)
}

// WriteRecord appends one record to the run's telemetry stream.
func (r *RedisClient) WriteRecord(rec types.Record) error {
	err := r.client.XAdd(r.ctx, &redis.XAddArgs{
		Stream: TelemetryStream(rec.Mode, rec.RunID),
		MaxLen: r.streamLimit,
		Approx: true,
		Values: map[string]interface{}{
			"timestamp":             rec.Timestamp,
			"lap_time":              rec.LapTime,
			"pos_x":                 rec.PosX,
			"pos_y":                 rec.PosY,
			"speed_kmh":             rec.SpeedKmh,
			"target_speed_kmh":      rec.TargetSpeedKmh,
			"steering_angle":        rec.Steering,
			"target_steering_angle": rec.TargetSteering,
			"acceleration":          rec.Acceleration,
			"mode_name":             rec.Mode,
			"run_id":                rec.RunID,
			"is_goal":               rec.IsGoal,
			"is_logging_active":     rec.Active,
			"error_angle":           rec.ErrorAngle,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append telemetry: %w", err)
	}
	return nil
}

// SendCommand pushes a command onto a Redis list
func (r *RedisClient) SendCommand(list, command string) error {
	if err := r.client.LPush(r.ctx, list, command).Err(); err != nil {
		r.logger.Infof("Failed to send command '%s' to '%s': %v", command, list, err)
		return err
	}
	r.logger.Infof("Sent command '%s' to '%s'", command, list)
	return nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	// Wait for all goroutines to finish with a timeout
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Infof("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}

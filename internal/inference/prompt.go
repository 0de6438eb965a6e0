package inference

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxModelSteering bounds the steering angle the model is asked for.
const MaxModelSteering = 0.5

const promptTemplate = `You are the driver of an autonomous car. The image is the forward camera view.
If a person or an animal is near a pedestrian crossing and may be about to cross,
you must slow down or stop.
Current speed: %.1f km/h.
Reply with JSON only, with a steering angle between %.1f and %.1f radians
(positive turns right) and a speed between 0 and %.1f km/h:
{
  "steering_angle": <float>,
  "speed_kmh": <float>
}`

// BuildPrompt renders the request text for the current speed.
func BuildPrompt(currentSpeedKmh, maxSpeedKmh float64) string {
	return fmt.Sprintf(promptTemplate, currentSpeedKmh, -MaxModelSteering, MaxModelSteering, maxSpeedKmh)
}

type reply struct {
	Steering float64 `json:"steering_angle"`
	SpeedKmh float64 `json:"speed_kmh"`
}

// ParseReply decodes a model reply. Markdown code fences around the JSON are
// ignored and missing fields read as zero.
func ParseReply(text string) (Result, error) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return Result{}, fmt.Errorf("empty reply")
	}

	var r reply
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Result{}, fmt.Errorf("decode reply: %w", err)
	}
	return Result{Steering: r.Steering, SpeedKmh: r.SpeedKmh}, nil
}

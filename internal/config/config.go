package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		LogLevel string
	}
	Director struct {
		URL            string
		ContextTimeout time.Duration
	}
	Nami struct {
		InterjectURL   string
		StopURL        string
		DeliverTimeout time.Duration
		StopTimeout    time.Duration
	}
	Gate struct {
		PostSpeechCooldown   time.Duration
		SpeechTimeout        time.Duration
		MinSpeechInterval    time.Duration
		PostResponseCooldown time.Duration
		MaxTrackedEvents     int
	}
	Events struct {
		Max int
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("director.url", "http://localhost:8006")
	v.SetDefault("director.context_timeout_sec", 3.0)

	v.SetDefault("nami.interject_url", "http://localhost:8000/funnel/interject")
	v.SetDefault("nami.stop_url", "http://localhost:8000/stop_audio")
	v.SetDefault("nami.deliver_timeout_sec", 2.0)
	v.SetDefault("nami.stop_timeout_sec", 1.0)

	v.SetDefault("gate.post_speech_cooldown_sec", 5.0)
	v.SetDefault("gate.speech_timeout_sec", 60.0)
	v.SetDefault("gate.min_speech_interval_sec", 5.0)
	v.SetDefault("gate.post_response_cooldown_sec", 10.0)
	v.SetDefault("gate.max_tracked_events", 50)

	v.SetDefault("events.max", 200)

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("director.url", "DIRECTOR_URL")
	v.BindEnv("director.context_timeout_sec", "DIRECTOR_CONTEXT_TIMEOUT_SEC")

	v.BindEnv("nami.interject_url", "NAMI_INTERJECT_URL")
	v.BindEnv("nami.stop_url", "NAMI_STOP_URL")
	v.BindEnv("nami.deliver_timeout_sec", "NAMI_DELIVER_TIMEOUT_SEC")
	v.BindEnv("nami.stop_timeout_sec", "NAMI_STOP_TIMEOUT_SEC")

	v.BindEnv("gate.post_speech_cooldown_sec", "POST_SPEECH_COOLDOWN_SEC")
	v.BindEnv("gate.speech_timeout_sec", "SPEECH_TIMEOUT_SEC")
	v.BindEnv("gate.min_speech_interval_sec", "MIN_SPEECH_INTERVAL_SEC")
	v.BindEnv("gate.post_response_cooldown_sec", "POST_RESPONSE_COOLDOWN_SEC")
	v.BindEnv("gate.max_tracked_events", "MAX_TRACKED_EVENTS")

	v.BindEnv("events.max", "MAX_EVENTS")

	var c Config
	c.Server.Port = v.GetString("server.port")
	c.Server.LogLevel = v.GetString("server.log_level")

	c.Director.URL = v.GetString("director.url")
	c.Director.ContextTimeout = seconds(v.GetFloat64("director.context_timeout_sec"))

	c.Nami.InterjectURL = v.GetString("nami.interject_url")
	c.Nami.StopURL = v.GetString("nami.stop_url")
	c.Nami.DeliverTimeout = seconds(v.GetFloat64("nami.deliver_timeout_sec"))
	c.Nami.StopTimeout = seconds(v.GetFloat64("nami.stop_timeout_sec"))

	c.Gate.PostSpeechCooldown = seconds(v.GetFloat64("gate.post_speech_cooldown_sec"))
	c.Gate.SpeechTimeout = seconds(v.GetFloat64("gate.speech_timeout_sec"))
	c.Gate.MinSpeechInterval = seconds(v.GetFloat64("gate.min_speech_interval_sec"))
	c.Gate.PostResponseCooldown = seconds(v.GetFloat64("gate.post_response_cooldown_sec"))
	c.Gate.MaxTrackedEvents = v.GetInt("gate.max_tracked_events")

	c.Events.Max = v.GetInt("events.max")

	log.Printf("config loaded: port=%s director=%s nami=%s", c.Server.Port, c.Director.URL, c.Nami.InterjectURL)
	return c
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

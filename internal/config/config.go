package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Render  RenderConfig
	FFmpeg  FFmpegConfig
	Cleanup CleanupConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type StorageConfig struct {
	VideosDir string
	FramesDir string
	AssetsDir string
}

// RenderConfig holds the defaults applied to generate requests that
// omit the corresponding fields.
type RenderConfig struct {
	Width         int
	Height        int
	FPS           int
	DurationSec   float64
	Decimation    int
	HoldWindowSec float64
	HookWindowSec float64
	Theme         string
}

type FFmpegConfig struct {
	Bin      string
	ProbeBin string
	Encoder  string
	Quality  int
	Preset   string
}

type CleanupConfig struct {
	GraceDelaySec int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("storage.videos_dir", "VIDEOS_DIR")
	_ = viper.BindEnv("storage.frames_dir", "FRAMES_DIR")
	_ = viper.BindEnv("storage.assets_dir", "ASSETS_DIR")
	_ = viper.BindEnv("render.width", "RENDER_WIDTH")
	_ = viper.BindEnv("render.height", "RENDER_HEIGHT")
	_ = viper.BindEnv("render.fps", "RENDER_FPS")
	_ = viper.BindEnv("render.duration_sec", "RENDER_DURATION_SEC")
	_ = viper.BindEnv("render.decimation", "RENDER_DECIMATION")
	_ = viper.BindEnv("render.hold_window_sec", "RENDER_HOLD_WINDOW_SEC")
	_ = viper.BindEnv("render.hook_window_sec", "RENDER_HOOK_WINDOW_SEC")
	_ = viper.BindEnv("render.theme", "RENDER_THEME")
	_ = viper.BindEnv("ffmpeg.bin", "FFMPEG_PATH")
	_ = viper.BindEnv("ffmpeg.probe_bin", "FFPROBE_PATH")
	_ = viper.BindEnv("ffmpeg.encoder", "FFMPEG_ENCODER")
	_ = viper.BindEnv("ffmpeg.quality", "FFMPEG_QUALITY")
	_ = viper.BindEnv("ffmpeg.preset", "FFMPEG_PRESET")
	_ = viper.BindEnv("cleanup.grace_delay_sec", "CLEANUP_GRACE_DELAY_SEC")

	// Defaults
	viper.SetDefault("server.port", "5000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("storage.videos_dir", "./data/videos")
	viper.SetDefault("storage.frames_dir", "./data/frames")
	viper.SetDefault("storage.assets_dir", "./data/assets")
	viper.SetDefault("render.width", 1080)
	viper.SetDefault("render.height", 1920)
	viper.SetDefault("render.fps", 30)
	viper.SetDefault("render.duration_sec", 60.0)
	viper.SetDefault("render.decimation", 1)
	viper.SetDefault("render.hold_window_sec", 2.0)
	viper.SetDefault("render.hook_window_sec", 2.0)
	viper.SetDefault("render.theme", "dark")
	viper.SetDefault("ffmpeg.bin", "ffmpeg")
	viper.SetDefault("ffmpeg.probe_bin", "ffprobe")
	viper.SetDefault("ffmpeg.encoder", "libx264")
	viper.SetDefault("ffmpeg.quality", 23)
	viper.SetDefault("ffmpeg.preset", "ultrafast")
	viper.SetDefault("cleanup.grace_delay_sec", 5)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Storage: StorageConfig{
			VideosDir: viper.GetString("storage.videos_dir"),
			FramesDir: viper.GetString("storage.frames_dir"),
			AssetsDir: viper.GetString("storage.assets_dir"),
		},
		Render: RenderConfig{
			Width:         viper.GetInt("render.width"),
			Height:        viper.GetInt("render.height"),
			FPS:           viper.GetInt("render.fps"),
			DurationSec:   viper.GetFloat64("render.duration_sec"),
			Decimation:    viper.GetInt("render.decimation"),
			HoldWindowSec: viper.GetFloat64("render.hold_window_sec"),
			HookWindowSec: viper.GetFloat64("render.hook_window_sec"),
			Theme:         viper.GetString("render.theme"),
		},
		FFmpeg: FFmpegConfig{
			Bin:      viper.GetString("ffmpeg.bin"),
			ProbeBin: viper.GetString("ffmpeg.probe_bin"),
			Encoder:  viper.GetString("ffmpeg.encoder"),
			Quality:  viper.GetInt("ffmpeg.quality"),
			Preset:   viper.GetString("ffmpeg.preset"),
		},
		Cleanup: CleanupConfig{
			GraceDelaySec: viper.GetInt("cleanup.grace_delay_sec"),
		},
	}

	return cfg, nil
}

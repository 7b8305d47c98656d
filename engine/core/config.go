package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
	Scene       SceneConfig       `toml:"scene"`
}

type ApplicationConfig struct {
	// The application name used in windowing and as the Vulkan application name.
	Name string `toml:"name"`
	// Window starting position.
	PosX uint32 `toml:"pos_x"`
	PosY uint32 `toml:"pos_y"`
	// Window starting size.
	Width    uint32 `toml:"width"`
	Height   uint32 `toml:"height"`
	LogLevel string `toml:"log_level"`
}

type RendererConfig struct {
	FramesInFlight uint32     `toml:"frames_in_flight"`
	Validation     bool       `toml:"validation"`
	VertexShader   string     `toml:"vertex_shader"`
	FragmentShader string     `toml:"fragment_shader"`
	ClearColor     [4]float32 `toml:"clear_color"`
}

type SceneConfig struct {
	AssetsDir      string  `toml:"assets_dir"`
	Path           string  `toml:"path"`
	CameraDistance float32 `toml:"camera_distance"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:     "Ember",
			PosX:     100,
			PosY:     100,
			Width:    1280,
			Height:   720,
			LogLevel: string(LogLevelInfo),
		},
		Renderer: RendererConfig{
			FramesInFlight: 2,
			Validation:     true,
			VertexShader:   "shaders/mesh.vert",
			FragmentShader: "shaders/mesh.frag",
			ClearColor:     [4]float32{0.0, 0.0, 0.2, 1.0},
		},
		Scene: SceneConfig{
			AssetsDir:      "assets",
			Path:           "scenes/cube.gltf",
			CameraDistance: 5.0,
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults, then applies
// environment overrides (a .env file next to the binary is honored). A
// missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config `%s`: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		LogDebug("Config `%s` not found, using defaults.", path)
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("EMBER_SCENE"); ok {
		c.Scene.Path = v
	}
	if v, ok := lookup("EMBER_LOG_LEVEL"); ok {
		c.Application.LogLevel = v
	}
	if v, ok := lookup("EMBER_VALIDATION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EMBER_VALIDATION: %w", err)
		}
		c.Renderer.Validation = b
	}
	if v, ok := lookup("EMBER_FRAMES_IN_FLIGHT"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("EMBER_FRAMES_IN_FLIGHT: %w", err)
		}
		c.Renderer.FramesInFlight = uint32(n)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("window size must be non zero, got %dx%d", c.Application.Width, c.Application.Height)
	}
	if c.Renderer.FramesInFlight < 2 || c.Renderer.FramesInFlight > 3 {
		return fmt.Errorf("frames_in_flight must be 2 or 3, got %d", c.Renderer.FramesInFlight)
	}
	if c.Scene.Path == "" {
		return errors.New("scene path is empty")
	}
	if c.Renderer.VertexShader == "" || c.Renderer.FragmentShader == "" {
		return errors.New("both vertex_shader and fragment_shader must be set")
	}
	if _, err := ParseLogLevel(c.Application.LogLevel); err != nil {
		return err
	}
	return nil
}

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/questforge/questforge/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"QUESTFORGE_CONFIG",
		"QUESTFORGE_ADDR",
		"QUESTFORGE_LOG_LEVEL",
		"QUESTFORGE_STORE_PATH",
		"QUESTFORGE_LEADERBOARD_LIMIT",
		"QUESTFORGE_NEARBY_WINDOW",
		"QUESTFORGE_CONFLICT_RETRIES",
		"QUESTFORGE_IDLE_WAIT_MS",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8090")
				convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 50)
				convey.So(cfg.ConflictRetries, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars()
			_ = os.Setenv("QUESTFORGE_ADDR", ":8080")
			_ = os.Setenv("QUESTFORGE_LEADERBOARD_LIMIT", "25")
			_ = os.Setenv("QUESTFORGE_NEARBY_WINDOW", "5")
			_ = os.Setenv("QUESTFORGE_STORE_PATH", "/tmp/questforge.db")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 25)
				convey.So(cfg.NearbyWindow, convey.ShouldEqual, 5)
				convey.So(cfg.StorePath, convey.ShouldEqual, "/tmp/questforge.db")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()
			yamlContent := "addr: \":9090\"\nleaderboard_limit: 10\nconflict_retries: 8\n"
			tmpFile := filepath.Join(t.TempDir(), "config.yaml")
			convey.So(os.WriteFile(tmpFile, []byte(yamlContent), 0o600), convey.ShouldBeNil)
			_ = os.Setenv("QUESTFORGE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values should override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LeaderboardLimit, convey.ShouldEqual, 10)
				convey.So(cfg.ConflictRetries, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When configuration is invalid", func() {
			clearConfigEnvVars()
			_ = os.Setenv("QUESTFORGE_LEADERBOARD_LIMIT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with ErrInvalidConfig", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

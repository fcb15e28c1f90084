package config

import (
	"testing"

	"github.com/aniplay-cli/aniplay/filesystem"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				val := viper.Get(name)
				So(val, ShouldNotBeNil)
			}
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("positions.cache.ttl")
			So(result, ShouldEqual, "positions_cache_ttl")
		})

		Convey("Field Env names carry the application prefix", func() {
			f := Default["api.base_url"]
			So(f.Env(), ShouldEqual, "ANIPLAY_API_BASE_URL")
		})
	})
}

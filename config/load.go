package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/rushteam/marketrec/core"
)

// PathEnvVar 指定配置文件路径的环境变量
const PathEnvVar = "MARKETREC_CONFIG"

// EnvPrefix 配置项环境变量前缀
const EnvPrefix = "MARKETREC_"

// Load 按 缺省值 -> 配置文件 -> 环境变量 的顺序加载配置。
// path 为空时读取 MARKETREC_CONFIG；都为空则不加载文件。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, wrap("load defaults", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, wrap("load config file "+path, err)
		}
	}

	// LOG_LEVEL / LOG_FORMAT 与其他服务保持一致
	if err := k.Load(env.Provider("LOG_", ".", func(s string) string {
		return "log." + strings.ToLower(strings.TrimPrefix(s, "LOG_"))
	}), nil); err != nil {
		return nil, wrap("load environment", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, wrap("load environment", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, wrap("unmarshal configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform MARKETREC_CACHE__REDIS__ADDR -> cache.redis.addr
func envTransform(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return core.Configurationf(core.ModuleConfig, "invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return wrap("validate configuration", err)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return core.Configurationf(core.ModuleConfig, "invalid configuration: cache.redis.addr is required for the redis backend")
	}
	if (c.Storage.AccessKey == "") != (c.Storage.SecretKey == "") {
		return core.Configurationf(core.ModuleConfig, "invalid configuration: storage access_key and secret_key must be set together")
	}
	return nil
}

// Dump 以 YAML 输出生效配置（密钥已隐去）
func (c *Config) Dump() (string, error) {
	data, err := yamlv3.Marshal(c.Redacted())
	if err != nil {
		return "", wrap("render configuration", err)
	}
	return string(data), nil
}

func wrap(msg string, err error) error {
	return core.WrapDomainError(core.ModuleConfig, core.ErrorCodeConfiguration, msg, err)
}

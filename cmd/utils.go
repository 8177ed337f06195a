package cmd

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var replacer = strings.NewReplacer(".", "_", "-", "_")

// envNames maps flag names to the environment variable bound to them.
var envNames = map[string]string{}

type argType interface {
	string | bool | int | int64 | time.Duration
}

func envName[T argType](cfg boundEnvVar[T]) string {
	if cfg.Env != nil {
		return *cfg.Env
	}
	return strings.ToUpper(replacer.Replace(cfg.Name))
}

func bindEnvMap[T argType](cmd *cobra.Command, m map[*T]boundEnvVar[T]) {
	for v, cfg := range m {
		env := envName(cfg)
		envNames[cfg.Name] = env
		desc := fmt.Sprintf("[%s] %s", env, cfg.Description)
		_, found := os.LookupEnv(env)

		switch vt := any(v).(type) {
		case *string:
			def := *vt
			if found {
				def = viper.GetString(env)
			}
			if cfg.Short == nil {
				cmd.PersistentFlags().StringVar(vt, cfg.Name, def, desc)
			} else {
				cmd.PersistentFlags().StringVarP(vt, cfg.Name, *cfg.Short, def, desc)
			}
		case *bool:
			def := *vt
			if found {
				def = viper.GetBool(env)
			}
			if cfg.Short == nil {
				cmd.PersistentFlags().BoolVar(vt, cfg.Name, def, desc)
			} else {
				cmd.PersistentFlags().BoolVarP(vt, cfg.Name, *cfg.Short, def, desc)
			}
		case *int:
			def := *vt
			if found {
				def = viper.GetInt(env)
			}
			switch {
			case cfg.Count && cfg.Short == nil:
				cmd.PersistentFlags().CountVar(vt, cfg.Name, desc)
			case cfg.Count:
				cmd.PersistentFlags().CountVarP(vt, cfg.Name, *cfg.Short, desc)
			case cfg.Short == nil:
				cmd.PersistentFlags().IntVar(vt, cfg.Name, def, desc)
			default:
				cmd.PersistentFlags().IntVarP(vt, cfg.Name, *cfg.Short, def, desc)
			}
			if cfg.Count {
				_ = cmd.PersistentFlags().Lookup(cfg.Name).Value.Set(strconv.Itoa(def))
			}
		case *int64:
			def := *vt
			if found {
				def = viper.GetInt64(env)
			}
			if cfg.Short == nil {
				cmd.PersistentFlags().Int64Var(vt, cfg.Name, def, desc)
			} else {
				cmd.PersistentFlags().Int64VarP(vt, cfg.Name, *cfg.Short, def, desc)
			}
		case *time.Duration:
			def := *vt
			if found {
				def = viper.GetDuration(env)
			}
			if cfg.Short == nil {
				cmd.PersistentFlags().DurationVar(vt, cfg.Name, def, desc)
			} else {
				cmd.PersistentFlags().DurationVarP(vt, cfg.Name, *cfg.Short, def, desc)
			}
		default:
			log.Panicf("command-args parsing error: unhandled default case for type %T", vt)
		}

		_ = viper.BindPFlag(cfg.Name, cmd.PersistentFlags().Lookup(cfg.Name))
		_ = viper.BindEnv(cfg.Name, env)

		if cfg.Hidden {
			_ = cmd.PersistentFlags().MarkHidden(cfg.Name)
		}
	}
}

// collectOverrides snapshots the value of every flag, across the whole command tree, that was set on the
// command line or through its environment variable.
func collectOverrides(root *cobra.Command) map[*pflag.Flag]string {
	overrides := make(map[*pflag.Flag]string)
	var walk func(*cobra.Command)
	walk = func(c *cobra.Command) {
		c.PersistentFlags().VisitAll(func(f *pflag.Flag) {
			env, bound := envNames[f.Name]
			if !bound {
				return
			}
			if _, found := os.LookupEnv(env); found || f.Changed {
				overrides[f] = f.Value.String()
			}
		})
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(root)
	return overrides
}

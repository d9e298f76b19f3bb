package cliflags_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/auth-fusion/authfusion/util/cliflags"
)

func TestProvider(t *testing.T) {
	var got map[string]any

	app := &cli.App{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level"},
		},
		Commands: []*cli.Command{{
			Name: "scan",
			Flags: []cli.Flag{
				&cli.DurationFlag{Name: "timeout", Value: time.Second},
				&cli.BoolFlag{Name: "insecure", Value: true},
				&cli.Int64Flag{Name: "max-body-size"},
				&cli.StringFlag{Name: "output", Value: "text"},
				&cli.UintFlag{Name: "workers"},
			},
			Action: func(ctx *cli.Context) error {
				rename := map[string]string{"timeout": "replay.timeout", "insecure": "replay.insecure"}
				p := cliflags.Provider(ctx, ".", func(s string) string {
					if name, ok := rename[s]; ok {
						return name
					}
					return s
				})

				var err error
				got, err = p.Read()
				return err
			},
		}},
	}

	err := app.Run([]string{"authfusion", "--log-level", "debug", "scan", "--timeout", "5s", "--insecure=false", "--workers", "4"})
	require.NoError(t, err)

	assert.Equal(t, "debug", got["log-level"])
	assert.Equal(t, map[string]any{"timeout": 5 * time.Second, "insecure": false}, got["replay"])

	assert.Equal(t, uint(4), got["workers"])

	// unset flags are left to the other config layers
	assert.NotContains(t, got, "output")
	assert.NotContains(t, got, "max-body-size")
}

func TestProvider_ReadBytes(t *testing.T) {
	app := &cli.App{
		Action: func(ctx *cli.Context) error {
			_, err := cliflags.Provider(ctx, ".", nil).ReadBytes()
			assert.Error(t, err)
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"authfusion"}))
}

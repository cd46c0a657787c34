package options

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/pkg/options/settings"
	"github.com/kart-io/knowledge-clone/pkg/options/vectorstore"
)

func parse(t *testing.T, o *ServerOptions, args ...string) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fss := o.Flags()
	for _, name := range fss.Order {
		fs.AddFlagSet(fss.FlagSets[name])
	}
	require.NoError(t, fs.Parse(args))
}

func TestDefaultsAreValid(t *testing.T) {
	o := NewServerOptions()
	require.NoError(t, o.Complete())
	assert.NoError(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.SettingsOptions, cfg.SettingsOptions)
	assert.Same(t, o.CloneOptions, cfg.CloneOptions)
}

func TestFlagsOverrideSections(t *testing.T) {
	o := NewServerOptions()
	parse(t, o,
		"--settings.backend=database",
		"--settings.vector-percentage=40",
		"--vector.backend=memory",
		"--clone.web.kind=http",
		"--clone.web.endpoint=http://search.local",
		"--http.addr=:9090",
		"--clone.upload.max-inflated-bytes=1048576",
	)

	assert.Equal(t, settings.BackendDatabase, o.SettingsOptions.Backend)
	assert.Equal(t, 40, o.SettingsOptions.VectorPercentage)
	assert.Equal(t, vectorstore.BackendMemory, o.VectorOptions.Backend)
	assert.Equal(t, "http://search.local", o.CloneOptions.Web.Endpoint)
	assert.Equal(t, ":9090", o.HTTPOptions.Addr)
	assert.EqualValues(t, 1<<20, o.CloneOptions.Upload.MaxInflatedBytes)
	assert.NoError(t, o.Validate())
}

func TestValidateAggregatesErrors(t *testing.T) {
	o := NewServerOptions()
	o.SettingsOptions.Backend = "etcd"
	o.VectorOptions.TopK = 0
	o.CloneOptions.Web.Kind = "http"
	o.CloneOptions.Upload.MaxInflatedBytes = 0

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported settings backend "etcd"`)
	assert.Contains(t, err.Error(), "vector.top-k must be positive")
	assert.Contains(t, err.Error(), "clone.web.endpoint is required")
	assert.Contains(t, err.Error(), "clone.upload.max-inflated-bytes must be positive")
}

func TestValidateOnlyChecksActiveBackends(t *testing.T) {
	o := NewServerOptions()
	o.MilvusOptions.Address = ""
	assert.NoError(t, o.Validate())

	o.VectorOptions.Backend = vectorstore.BackendMilvus
	assert.Error(t, o.Validate())
}

package appdirs

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestResolveLayouts(t *testing.T) {
	portableExePath := filepath.Join("/", "opt", "narrator", "narrator")
	portableDataDir := filepath.Join(filepath.Dir(portableExePath), "data")

	userConfigRoot := filepath.Join("/", "Users", "sam", "Library", "Application Support")
	userCacheRoot := filepath.Join("/", "Users", "sam", "Library", "Caches")
	homeRoot := filepath.Join("/", "srv", "narrator")

	testCases := []struct {
		name           string
		goos           string
		env            map[string]string
		executablePath string
		want           Paths
		wantExeCall    bool
		wantConfigCall bool
		wantCacheCall  bool
	}{
		{
			name:           "portable layout when env is true",
			goos:           "linux",
			env:            map[string]string{PortableEnv: "true"},
			executablePath: portableExePath,
			want: Paths{
				Portable:   true,
				ConfigDir:  filepath.Join(portableDataDir, "config"),
				ConfigFile: filepath.Join(portableDataDir, "config", "config.toml"),
				LogDir:     filepath.Join(portableDataDir, "logs"),
				OutputDir:  filepath.Join(portableDataDir, "output"),
				CacheDir:   filepath.Join(portableDataDir, "cache"),
			},
			wantExeCall: true,
		},
		{
			name: "home env roots every directory",
			goos: "darwin",
			env:  map[string]string{HomeEnv: homeRoot},
			want: Paths{
				ConfigDir:  filepath.Join(homeRoot, "config"),
				ConfigFile: filepath.Join(homeRoot, "config", "config.toml"),
				LogDir:     filepath.Join(homeRoot, "logs"),
				OutputDir:  filepath.Join(homeRoot, "output"),
				CacheDir:   filepath.Join(homeRoot, "cache"),
			},
		},
		{
			name: "darwin uses user dirs",
			goos: "darwin",
			want: Paths{
				ConfigDir:  filepath.Join(userConfigRoot, appName),
				ConfigFile: filepath.Join(userConfigRoot, appName, "config.toml"),
				LogDir:     filepath.Join(userCacheRoot, appName, "logs"),
				OutputDir:  filepath.Join(userCacheRoot, appName, "output"),
				CacheDir:   filepath.Join(userCacheRoot, appName, "cache"),
			},
			wantConfigCall: true,
			wantCacheCall:  true,
		},
		{
			name: "linux keeps working dir layout",
			goos: "linux",
			want: Paths{
				ConfigDir:  "config",
				ConfigFile: filepath.Join("config", "config.toml"),
				LogDir:     ".",
				OutputDir:  "output",
				CacheDir:   "cache",
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			exeCalled := false
			configCalled := false
			cacheCalled := false

			got, err := resolve(resolveDeps{
				goos: tc.goos,
				getenv: func(key string) string {
					return tc.env[key]
				},
				executable: func() (string, error) {
					exeCalled = true
					return tc.executablePath, nil
				},
				userConfigDir: func() (string, error) {
					configCalled = true
					return userConfigRoot, nil
				},
				userCacheDir: func() (string, error) {
					cacheCalled = true
					return userCacheRoot, nil
				},
			})
			if err != nil {
				t.Fatalf("resolve() returned unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("resolve() = %+v, want %+v", got, tc.want)
			}

			if exeCalled != tc.wantExeCall {
				t.Fatalf("executable() called = %t, want %t", exeCalled, tc.wantExeCall)
			}
			if configCalled != tc.wantConfigCall {
				t.Fatalf("userConfigDir() called = %t, want %t", configCalled, tc.wantConfigCall)
			}
			if cacheCalled != tc.wantCacheCall {
				t.Fatalf("userCacheDir() called = %t, want %t", cacheCalled, tc.wantCacheCall)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	testCases := []struct {
		name       string
		deps       resolveDeps
		wantErrSub string
	}{
		{
			name: "portable mode returns executable lookup error",
			deps: resolveDeps{
				goos: "linux",
				getenv: func(key string) string {
					if key == PortableEnv {
						return "1"
					}
					return ""
				},
				executable: func() (string, error) {
					return "", errors.New("no executable")
				},
			},
			wantErrSub: "no executable",
		},
		{
			name: "windows rejects empty config root",
			deps: resolveDeps{
				goos:          "windows",
				getenv:        func(string) string { return "" },
				userConfigDir: func() (string, error) { return "  ", nil },
			},
			wantErrSub: "user config dir is empty",
		},
		{
			name: "windows returns cache dir error",
			deps: resolveDeps{
				goos:          "windows",
				getenv:        func(string) string { return "" },
				userConfigDir: func() (string, error) { return "C:\\cfg", nil },
				userCacheDir:  func() (string, error) { return "", errors.New("no cache dir") },
			},
			wantErrSub: "no cache dir",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := resolve(tc.deps)
			if err == nil {
				t.Fatal("resolve() returned nil error")
			}
			if !strings.Contains(err.Error(), tc.wantErrSub) {
				t.Fatalf("resolve() error = %q, want containing %q", err.Error(), tc.wantErrSub)
			}
		})
	}
}

func TestIsPortableEnabled(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "empty value", value: "", want: false},
		{name: "zero", value: "0", want: false},
		{name: "one", value: "1", want: true},
		{name: "true uppercase", value: "TRUE", want: true},
		{name: "trimmed true", value: "  true  ", want: true},
		{name: "yes is not enough", value: "yes", want: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := isPortableEnabled(tc.value); got != tc.want {
				t.Fatalf("isPortableEnabled(%q) = %t, want %t", tc.value, got, tc.want)
			}
		})
	}
}

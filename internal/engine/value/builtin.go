package value

import "math"

// builtins are engine constants whose values do not depend on the host.
var builtins = map[string]any{
	"PHP_EOL":                "\n",
	"PHP_INT_MAX":            int64(math.MaxInt64),
	"PHP_INT_MIN":            int64(math.MinInt64),
	"PHP_INT_SIZE":           int64(8),
	"PHP_FLOAT_EPSILON":      math.Nextafter(1, 2) - 1,
	"PHP_FLOAT_MAX":          math.MaxFloat64,
	"PHP_FLOAT_DIG":          int64(15),
	"DIRECTORY_SEPARATOR":    "/",
	"PATH_SEPARATOR":         ":",
	"M_PI":                   math.Pi,
	"M_E":                    math.E,
	"M_SQRT2":                math.Sqrt2,
	"INF":                    math.Inf(1),
	"NAN":                    math.NaN(),
	"E_ERROR":                int64(1),
	"E_WARNING":              int64(2),
	"E_PARSE":                int64(4),
	"E_NOTICE":               int64(8),
	"E_CORE_ERROR":           int64(16),
	"E_CORE_WARNING":         int64(32),
	"E_COMPILE_ERROR":        int64(64),
	"E_COMPILE_WARNING":      int64(128),
	"E_USER_ERROR":           int64(256),
	"E_USER_WARNING":         int64(512),
	"E_USER_NOTICE":          int64(1024),
	"E_STRICT":               int64(2048),
	"E_RECOVERABLE_ERROR":    int64(4096),
	"E_DEPRECATED":           int64(8192),
	"E_USER_DEPRECATED":      int64(16384),
	"E_ALL":                  int64(32767),
	"SORT_REGULAR":           int64(0),
	"SORT_NUMERIC":           int64(1),
	"SORT_STRING":            int64(2),
	"SORT_FLAG_CASE":         int64(8),
	"COUNT_RECURSIVE":        int64(1),
	"ENT_QUOTES":             int64(3),
	"ENT_COMPAT":             int64(2),
	"ENT_HTML5":              int64(48),
	"JSON_HEX_TAG":           int64(1),
	"JSON_UNESCAPED_SLASHES": int64(64),
	"JSON_PRETTY_PRINT":      int64(128),
	"JSON_UNESCAPED_UNICODE": int64(256),
	"JSON_THROW_ON_ERROR":    int64(4194304),
	"PREG_SPLIT_NO_EMPTY":    int64(1),
	"LOCK_SH":                int64(1),
	"LOCK_EX":                int64(2),
	"LOCK_UN":                int64(3),
}

// Builtin looks up an engine constant by its exact name.
func Builtin(name string) (any, bool) {
	v, ok := builtins[name]
	return v, ok
}

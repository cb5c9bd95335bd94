// Package domain models OpenWeatherMap current-weather observations and the
// driver values a Polyglot-style home-automation host consumes.
//
// # Data Source
//
// Observations come from the OpenWeatherMap "current weather" endpoint
// (https://api.openweathermap.org/data/2.5/weather). A trimmed response looks
// like:
//
//	{
//	  "weather": [{"id": 800, "main": "Clear", "description": "clear sky"}],
//	  "main":    {"temp": 22.03, "pressure": 1020, "humidity": 26, "temp_min": 19, "temp_max": 24.4},
//	  "wind":    {"speed": 1.28, "deg": 225.001},
//	  "clouds":  {"all": 1},
//	  "dt":      1541019600,
//	  "name":    "El Dorado Hills"
//	}
//
// Every group may be missing. "rain" only appears when precipitation was
// measured and is keyed by accumulation window ("1h", "3h"). Groups that are
// present but carry none of the fields we read ({} or []) are treated as
// absent.
//
// # Drivers
//
// The host addresses each reading by a short driver id (CLITEMP, GV4, ...)
// and a unit-of-measure code. The fixed list lives in [Schema]; ids and UOM
// codes must not change because host-side profiles are keyed on them.
//
//	main.temp      -> CLITEMP (4, °C)
//	main.humidity  -> CLIHUM  (22, %)
//	main.pressure  -> BARPRES (117, hPa)
//	main.temp_max  -> GV0     (4)
//	main.temp_min  -> GV1     (4)
//	wind.speed     -> GV4     (48)
//	wind.deg       -> WINDDIR (76, degrees)
//	rain["3h"]     -> GV6     (25)   optional
//	clouds.all     -> GV14    (25)   optional
//	weather[0].id  -> GV13    (25)   optional, integral
//
// "main" and "wind" are required: without them [MapObservation] returns a
// [MissingDataError] and the cycle publishes nothing.
//
// # Condition Codes
//
// weather[].id is an OpenWeatherMap condition code (2xx thunderstorm, 3xx
// drizzle, 5xx rain, 6xx snow, 7xx atmosphere, 800 clear, 80x clouds). Only
// the raw code is published; [Describe] turns it into a label for callers that
// want one.
package domain

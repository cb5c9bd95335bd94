package domain

type fieldMapping struct {
	driver   string
	path     string
	group    string
	required bool
	integral bool
	// lookup returns the field and whether its group is present.
	lookup func(Observation) (Field, bool)
}

// Output order is fixed: main fields, then wind, rain, clouds, conditions.
var fieldMappings = []fieldMapping{
	{driver: DriverTemperature, path: "main.temp", group: "main", required: true,
		lookup: func(o Observation) (Field, bool) { return mainField(o, func(m *MainGroup) Field { return m.Temp }) }},
	{driver: DriverHumidity, path: "main.humidity", group: "main", required: true,
		lookup: func(o Observation) (Field, bool) { return mainField(o, func(m *MainGroup) Field { return m.Humidity }) }},
	{driver: DriverPressure, path: "main.pressure", group: "main", required: true,
		lookup: func(o Observation) (Field, bool) { return mainField(o, func(m *MainGroup) Field { return m.Pressure }) }},
	{driver: DriverMaxTemp, path: "main.temp_max", group: "main", required: true,
		lookup: func(o Observation) (Field, bool) { return mainField(o, func(m *MainGroup) Field { return m.TempMax }) }},
	{driver: DriverMinTemp, path: "main.temp_min", group: "main", required: true,
		lookup: func(o Observation) (Field, bool) { return mainField(o, func(m *MainGroup) Field { return m.TempMin }) }},
	{driver: DriverWindSpeed, path: "wind.speed", group: "wind", required: true,
		lookup: func(o Observation) (Field, bool) { return windField(o, func(w *WindGroup) Field { return w.Speed }) }},
	{driver: DriverWindDirection, path: "wind.deg", group: "wind", required: true,
		lookup: func(o Observation) (Field, bool) { return windField(o, func(w *WindGroup) Field { return w.Deg }) }},
	{driver: DriverRain, path: "rain.3h", group: "rain",
		lookup: func(o Observation) (Field, bool) { return o.Rain["3h"], o.RainPresent() }},
	{driver: DriverClouds, path: "clouds.all", group: "clouds",
		lookup: func(o Observation) (Field, bool) {
			if !o.CloudsPresent() {
				return Field{}, false
			}
			return o.Clouds.All, true
		}},
	{driver: DriverConditions, path: "weather[0].id", group: "weather", integral: true,
		lookup: func(o Observation) (Field, bool) {
			if !o.WeatherPresent() {
				return Field{}, false
			}
			return o.Weather[0].ID, true
		}},
}

func mainField(o Observation, get func(*MainGroup) Field) (Field, bool) {
	if !o.MainPresent() {
		return Field{}, false
	}
	return get(o.Main), true
}

func windField(o Observation, get func(*WindGroup) Field) (Field, bool) {
	if !o.WindPresent() {
		return Field{}, false
	}
	return get(o.Wind), true
}

// MapObservation converts an observation into the ordered driver values to
// publish. It either returns every applicable value or an error and no
// values: required groups are checked before anything is converted.
func MapObservation(obs Observation) ([]DriverValue, error) {
	if !obs.MainPresent() {
		return nil, &MissingDataError{Field: "main"}
	}
	if !obs.WindPresent() {
		return nil, &MissingDataError{Field: "wind"}
	}

	out := make([]DriverValue, 0, len(fieldMappings))
	for _, m := range fieldMappings {
		f, groupPresent := m.lookup(obs)
		if !groupPresent {
			if m.required {
				return nil, &MissingDataError{Field: m.group}
			}
			continue
		}
		if !f.Present() {
			if m.required {
				return nil, &MissingDataError{Field: m.path}
			}
			continue
		}

		v, err := coerce(f, m.integral)
		if err != nil {
			return nil, &MalformedValueError{Field: m.path, Raw: f.Raw(), Err: err}
		}
		out = append(out, NewDriverValue(m.driver, v))
	}
	return out, nil
}

func coerce(f Field, integral bool) (Value, error) {
	if integral {
		n, err := f.Int64()
		if err != nil {
			return Value{}, err
		}
		return Int(n), nil
	}
	x, err := f.Float64()
	if err != nil {
		return Value{}, err
	}
	return Float(x), nil
}

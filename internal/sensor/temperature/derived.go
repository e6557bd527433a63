package temperature

// DewPoint approximates the dew point in °C from temperature (°C) and
// relative humidity (%), using T - (100 - RH) / 5. The approximation holds
// for RH above roughly 50%.
func DewPoint(tempC, humidity float64) float64 {
	return tempC - (100-humidity)/5
}

// HeatIndex returns the apparent temperature in °C using the simple
// Steadman approximation evaluated in Fahrenheit.
func HeatIndex(tempC, humidity float64) float64 {
	tempF := tempC*9/5 + 32
	hiF := 0.5 * (tempF + 61 + (tempF-68)*1.2 + humidity*0.094)
	return (hiF - 32) * 5 / 9
}

// Package ads1115 reads temperature and humidity from analog sensors wired
// to a TI ADS1115 16-bit ADC over I2C.
//
// The temperature channel expects a TMP36 (10 mV/°C, 500 mV at 0 °C). The
// optional humidity channel expects a Honeywell HIH-4030 powered from the
// configured supply voltage. Source satisfies temperature.Source so a
// hardware sensor drops in where the simulator would otherwise be used.
package ads1115

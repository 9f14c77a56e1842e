package config

// defaultConfig is the embedded fallback used when no config file is given.
const defaultConfig = `
[indicator]
led_chip = "gpiochip0"
led_pin = 17

[battery]
low_percent = 20
critical_percent = 10
full_percent = 95
charge_threshold_ma = 50
period_ms = 5000

[bridge]
enabled = false
broker = "tcp://127.0.0.1:1883"
topic_prefix = "devices/collar"
`

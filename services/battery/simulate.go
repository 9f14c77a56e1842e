package battery

import "statusled-go/types"

// Simulation entry points for bench testing and the maintenance shell.

func (m *Monitor) SimulateLowBattery() {
	m.Update(types.BatteryReading{Percent: 15, PackMilliV: 3200})
}

func (m *Monitor) SimulateChargingStart() {
	m.Update(types.BatteryReading{Percent: 30, PackMilliV: 3500, ChargeMilli: 500})
}

func (m *Monitor) SimulateChargingComplete() {
	// Trickle charge only; below the charging threshold.
	m.Update(types.BatteryReading{Percent: 100, PackMilliV: 4200, ChargeMilli: 20})
}

package indicator

import "statusled-go/types"

// Convenience wrappers for the common status changes. Errors are ignored:
// every status below is in the built-in catalogue.

func (e *Engine) PowerOn()           { _ = e.Set(types.StatusPowerOn) }
func (e *Engine) BLEEnterPairing()   { _ = e.Set(types.StatusBLEPairing) }
func (e *Engine) BLEPairingSuccess() { _ = e.Set(types.StatusBLEPairSuccess) }
func (e *Engine) BLEPairingFailed()  { _ = e.Set(types.StatusBLEPairFail) }
func (e *Engine) FactoryReset()      { _ = e.Set(types.StatusFactoryReset) }
func (e *Engine) OTAUpdateStart()    { _ = e.Set(types.StatusOTAUpdate) }
func (e *Engine) OTAUpdateSuccess()  { _ = e.Set(types.StatusOTASuccess) }
func (e *Engine) OTAUpdateFailed()   { _ = e.Set(types.StatusOTAFail) }
func (e *Engine) Off()               { _ = e.Set(types.StatusOff) }

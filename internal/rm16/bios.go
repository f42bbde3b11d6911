package rm16

import "io"

// Firmware video service numbers.
const (
	IntVideo = 0x10

	// FuncTeletype is the teletype-output function of the video service:
	// AH selects the function, AL carries the character. The character
	// goes to the display and the cursor advances; no status comes back.
	FuncTeletype = 0x0E
)

// InstallVideoService wires the firmware video interrupt to an
// io.Writer. Teletype output writes the AL byte as-is; control bytes
// like CR and LF pass through for whatever is on the other end of the
// writer to interpret. Functions other than teletype output are
// accepted and ignored, which is all a stage-1 loader relies on.
func InstallVideoService(m *Machine, w io.Writer) {
	m.HandleInterrupt(IntVideo, func(m *Machine) error {
		if m.CPU.Reg8(RegAH) != FuncTeletype {
			return nil
		}
		if w == nil {
			return nil
		}
		_, err := w.Write([]byte{m.CPU.Reg8(RegAL)})
		return err
	})
}

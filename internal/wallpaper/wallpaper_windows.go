package wallpaper

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"apod/internal/deps"
)

const (
	spiSetDeskWallpaper = 0x0014
	spifUpdateIniFile   = 0x01
	spifSendChange      = 0x02
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procSystemParametersInfo = user32.NewProc("SystemParametersInfoW")
)

type windowsSetter struct{}

// platformRequirements is empty because the Windows setter calls user32 directly.
func platformRequirements() []deps.Requirement {
	return nil
}

func newPlatformSetter(commandRunner) Setter {
	return windowsSetter{}
}

func (windowsSetter) Set(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := procSystemParametersInfo.Find(); err != nil {
		return fmt.Errorf("locate SystemParametersInfoW: %w", err)
	}
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	ret, _, callErr := procSystemParametersInfo.Call(
		spiSetDeskWallpaper,
		0,
		uintptr(unsafe.Pointer(ptr)),
		spifUpdateIniFile|spifSendChange,
	)
	if ret == 0 {
		return fmt.Errorf("SystemParametersInfoW: %w", callErr)
	}
	return nil
}

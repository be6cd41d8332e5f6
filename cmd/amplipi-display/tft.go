//go:build linux

package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// TFT drives the ILI9341 front-panel display over SPI.
type TFT struct {
	spiDev    spi.Conn
	dc        gpio.PinOut
	backlight gpio.PinOut
	width     int
	height    int
	img       *image.RGBA
}

// ILI9341 command opcodes used during init and frame writes.
const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdPASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdPIXFMT  = 0x3A
)

// madctlRotate270 sets MY|MX|MV|BGR so the panel matches the carrier
// board's mounting orientation (rotation=270 in the vendor's Python driver).
const madctlRotate270 = 0xE8

const (
	displayWidth  = 320
	displayHeight = 240
)

// NewTFT opens the SPI bus, claims the DC/backlight GPIO lines, and runs the
// ILI9341 init sequence. The TFT is on SPI1/CS0 (/dev/spidev1.0) on the CM4
// carrier board; DC is GPIO39 and backlight enable is GPIO12.
func NewTFT() (*TFT, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph.io init: %w", err)
	}

	port, err := spireg.Open("/dev/spidev1.0")
	if err != nil {
		return nil, fmt.Errorf("open SPI: %w", err)
	}

	conn, err := port.Connect(16*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("connect SPI: %w", err)
	}

	dc := gpioreg.ByName("GPIO39")
	if dc == nil {
		return nil, fmt.Errorf("failed to open GPIO39 (DC pin)")
	}

	backlight := gpioreg.ByName("GPIO12")
	if backlight == nil {
		return nil, fmt.Errorf("failed to open GPIO12 (backlight pin)")
	}

	t := &TFT{
		spiDev:    conn,
		dc:        dc,
		backlight: backlight,
		width:     displayWidth,
		height:    displayHeight,
		img:       image.NewRGBA(image.Rect(0, 0, displayWidth, displayHeight)),
	}

	if err := t.init(); err != nil {
		return nil, fmt.Errorf("init display: %w", err)
	}

	slog.Info("TFT display initialized", "width", displayWidth, "height", displayHeight)
	return t, nil
}

// init runs the ILI9341 power-up sequence. Register values match the
// Adafruit CircuitPython RGB display driver, which this panel was bought
// to work with.
func (t *TFT) init() error {
	if err := t.backlight.Out(gpio.High); err != nil {
		return fmt.Errorf("set backlight: %w", err)
	}

	if err := t.writeCommand(cmdSWRESET); err != nil {
		return err
	}
	if err := t.writeCommand(cmdSLPOUT); err != nil {
		return err
	}

	if err := t.writeCommand(0xC0, 0x23); err != nil { // power control 1
		return err
	}
	if err := t.writeCommand(0xC1, 0x10); err != nil { // power control 2
		return err
	}
	if err := t.writeCommand(0xC5, 0x3E, 0x28); err != nil { // VCOM control 1
		return err
	}
	if err := t.writeCommand(0xC7, 0x86); err != nil { // VCOM control 2
		return err
	}

	if err := t.writeCommand(cmdMADCTL, madctlRotate270); err != nil {
		return err
	}
	if err := t.writeCommand(cmdPIXFMT, 0x55); err != nil { // 16bpp RGB565
		return err
	}
	if err := t.writeCommand(0xB1, 0x00, 0x18); err != nil { // frame rate
		return err
	}
	if err := t.writeCommand(0xB6, 0x08, 0x82, 0x27); err != nil { // display function control
		return err
	}
	if err := t.writeCommand(0xF2, 0x00); err != nil { // gamma function disable
		return err
	}
	if err := t.writeCommand(0x26, 0x01); err != nil { // gamma curve select
		return err
	}

	if err := t.writeCommand(cmdDISPON); err != nil {
		return err
	}

	slog.Debug("ILI9341 initialization complete")
	return nil
}

// writeCommand sends cmd with DC low, then any data bytes with DC high.
func (t *TFT) writeCommand(cmd byte, data ...byte) error {
	if err := t.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := t.spiDev.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := t.dc.Out(gpio.High); err != nil {
		return err
	}
	return t.spiDev.Tx(data, nil)
}

// setWindow sets the column/page address window for the next RAM write.
func (t *TFT) setWindow(x0, y0, x1, y1 int) error {
	if err := t.writeCommand(cmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	return t.writeCommand(cmdPASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1))
}

// Display pushes the full image buffer to the panel as RGB565, chunked to
// stay under the SPI driver's 4096-byte transfer limit.
func (t *TFT) Display() error {
	if err := t.setWindow(0, 0, t.width-1, t.height-1); err != nil {
		return err
	}

	if err := t.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := t.spiDev.Tx([]byte{cmdRAMWR}, nil); err != nil {
		return err
	}
	if err := t.dc.Out(gpio.High); err != nil {
		return err
	}

	const chunkSize = 4096
	totalBytes := t.width * t.height * 2
	buf := make([]byte, chunkSize)

	pixelIdx := 0
	for offset := 0; offset < totalBytes; offset += chunkSize {
		remaining := totalBytes - offset
		size := chunkSize
		if remaining < chunkSize {
			size = remaining
		}

		for i := 0; i < size; i += 2 {
			x := pixelIdx % t.width
			y := pixelIdx / t.width
			r, g, b, _ := t.img.At(x, y).RGBA()

			r8 := uint8(r >> 8)
			g8 := uint8(g >> 8)
			b8 := uint8(b >> 8)

			rgb565 := uint16(r8&0xF8)<<8 | uint16(g8&0xFC)<<3 | uint16(b8>>3)

			// Big-endian, matches the Python driver's ">H" struct format.
			buf[i] = byte(rgb565 >> 8)
			buf[i+1] = byte(rgb565)
			pixelIdx++
		}

		if err := t.spiDev.Tx(buf[:size], nil); err != nil {
			return err
		}
	}

	return nil
}

// Clear fills the buffer with a solid color.
func (t *TFT) Clear(c color.Color) {
	draw.Draw(t.img, t.img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
}

// DrawText draws text with the top-left baseline at (x, y).
func (t *TFT) DrawText(x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  t.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// Character cell size for basicfont.Face7x13.
const (
	charW = 7
	charH = 13
)

// RenderStatus lays out hostname/IP, disk usage, per-source playing
// indicators, and per-zone volume bars, then flushes the buffer.
func (t *TFT) RenderStatus(status *Status) error {
	slog.Debug("rendering TFT display", "zones", len(status.Zones), "sources", len(status.Sources))

	t.Clear(color.Black)

	white := color.RGBA{255, 255, 255, 255}
	yellow := color.RGBA{255, 255, 0, 255}
	green := color.RGBA{0, 255, 0, 255}
	lightGray := color.RGBA{153, 153, 153, 255}

	playing, muted := 0, 0
	for _, z := range status.Zones {
		if z.Mute {
			muted++
		} else {
			playing++
		}
	}
	statusLine := fmt.Sprintf("Status: ▶x%d ⏸x%d", playing, muted)
	t.DrawText(1*charW, 0*charH+2, statusLine, white)
	if status.Expanders > 0 {
		t.DrawText(22*charW, 0*charH+2, fmt.Sprintf("Expanders: %d", status.Expanders), white)
	}

	diskColor := gradientColor(status.DiskPercent)
	t.DrawText(1*charW, 1*charH+2, "Disk:", white)
	t.DrawText(7*charW, 1*charH+2, fmt.Sprintf("%.1f%%", status.DiskPercent), diskColor)
	t.DrawText(14*charW, 1*charH+2, fmt.Sprintf("%.2f/%.2f GB", status.DiskUsedGB, status.DiskTotalGB), diskColor)

	t.DrawText(1*charW, 2*charH+2, fmt.Sprintf("IP:   %s, %s.local", status.IP, status.Hostname), white)

	t.DrawText(1*charW, 3*charH+2, "Password: ", white)
	t.DrawText(11*charW, 3*charH+2, status.Password, yellow)

	ys := 4*charH + charH/2
	t.DrawHLine(charW, t.width-2*charW, ys-3, 2, lightGray)

	sourceLabels := []string{"Source 1:", "Source 2:", "Source 3:", "Source 4:"}
	for i, label := range sourceLabels {
		t.DrawText(1*charW, int(float64(ys)+float64(i)*1.1*float64(charH)), label, white)
		if i >= len(status.Sources) {
			continue
		}
		src := status.Sources[i]
		if src.Playing {
			xp := 10*charW - charW/2
			yp := ys + i*charH + 3
			t.DrawTriangle(xp, yp, charW-3, charH, green)
		}
		if src.Name != "" {
			t.DrawText(11*charW, ys+i*charH, src.Name, yellow)
		}
	}

	t.DrawHLine(charW, t.width-2*charW, ys+4*charH+2, 2, lightGray)

	t.DrawVolumeBars(status.Zones, charW, 9*charH-2, t.width-2*charW, t.height-9*charH)

	if err := t.Display(); err != nil {
		return err
	}

	slog.Debug("TFT display render complete")
	return nil
}

// gradientColor maps a percentage to green (low) through yellow to red (high).
func gradientColor(percent float64) color.Color {
	switch {
	case percent < 50:
		return color.RGBA{0, 255, 0, 255}
	case percent < 75:
		return color.RGBA{255, 255, 0, 255}
	default:
		return color.RGBA{255, 0, 0, 255}
	}
}

// DrawHLine draws a horizontal bar of the given thickness.
func (t *TFT) DrawHLine(x0, x1, y, thickness int, col color.Color) {
	for i := 0; i < thickness; i++ {
		for x := x0; x <= x1; x++ {
			t.img.Set(x, y+i, col)
		}
	}
}

// DrawTriangle draws a filled right-pointing triangle, used as the
// per-source "now playing" indicator.
func (t *TFT) DrawTriangle(x, y, w, h int, col color.Color) {
	for dy := 0; dy < h; dy++ {
		dx := (dy * w) / h
		if dy >= h/2 {
			dx = ((h - dy) * w) / h
		}
		for i := 0; i < dx; i++ {
			t.img.Set(x+i, y+dy, col)
		}
	}
}

// DrawVolumeBars draws one outlined, volume-filled bar per zone across the
// given region. Volume is assumed to be in the -79..0 dB range; muted zones
// fill gray instead of green.
func (t *TFT) DrawVolumeBars(zones []ZoneInfo, x, y, width, height int) {
	if len(zones) == 0 {
		return
	}

	barWidth := width / len(zones)
	if barWidth > 40 {
		barWidth = 40
	}
	barSpacing := (width - barWidth*len(zones)) / (len(zones) + 1)

	white := color.RGBA{255, 255, 255, 255}
	green := color.RGBA{0, 255, 0, 255}
	gray := color.RGBA{64, 64, 64, 255}

	for i, zone := range zones {
		barX := x + barSpacing*(i+1) + barWidth*i
		barHeight := height - 20 // leave room for the zone label below

		label := fmt.Sprintf("Z%d", zone.ID+1)
		t.DrawText(barX, y+barHeight+10, label, white)

		volumePercent := float64(zone.Volume+79) / 79.0
		fillHeight := int(volumePercent * float64(barHeight))

		for py := y; py < y+barHeight; py++ {
			t.img.Set(barX, py, white)
			t.img.Set(barX+barWidth-1, py, white)
		}
		for px := barX; px < barX+barWidth; px++ {
			t.img.Set(px, y, white)
			t.img.Set(px, y+barHeight-1, white)
		}

		fillColor := green
		if zone.Mute {
			fillColor = gray
		}
		for py := 0; py < fillHeight; py++ {
			for px := 1; px < barWidth-1; px++ {
				t.img.Set(barX+px, y+barHeight-1-py, fillColor)
			}
		}
	}
}

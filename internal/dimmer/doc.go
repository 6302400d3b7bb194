// Package dimmer owns the display backlight: a time-of-day schedule with
// linear ramps at the day/night boundaries, manual override commands, and
// the sysfs/xrandr writes that apply a brightness percentage to hardware.
package dimmer

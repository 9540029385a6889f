package xhotkey

import "golang.design/x/hotkey"

const modAlt = hotkey.Mod1

package core

// Key codes share GLFW's numbering so they convert directly to glfw.Key.
const (
	KeySpace = 32
	KeyComma = 44
	KeyMinus = 45
	KeyEqual = 61

	Key0 = 48
	Key1 = 49
	Key2 = 50
	Key3 = 51
	Key4 = 52
	Key5 = 53
	Key6 = 54
	Key7 = 55
	Key8 = 56
	Key9 = 57

	KeyA = 65
	KeyB = 66
	KeyC = 67
	KeyD = 68
	KeyE = 69
	KeyF = 70
	KeyG = 71
	KeyH = 72
	KeyI = 73
	KeyJ = 74
	KeyK = 75
	KeyL = 76
	KeyM = 77
	KeyN = 78
	KeyO = 79
	KeyP = 80
	KeyQ = 81
	KeyR = 82
	KeyS = 83
	KeyT = 84
	KeyU = 85
	KeyV = 86
	KeyW = 87
	KeyX = 88
	KeyY = 89
	KeyZ = 90

	KeyEscape    = 256
	KeyEnter     = 257
	KeyTab       = 258
	KeyBackspace = 259
	KeyInsert    = 260
	KeyDelete    = 261
	KeyRight     = 262
	KeyLeft      = 263
	KeyDown      = 264
	KeyUp        = 265
	KeyHome      = 268
	KeyEnd       = 269

	KeyF1  = 290
	KeyF2  = 291
	KeyF3  = 292
	KeyF4  = 293
	KeyF5  = 294
	KeyF12 = 301

	KeyLeftShift    = 340
	KeyLeftControl  = 341
	KeyLeftAlt      = 342
	KeyLeftSuper    = 343
	KeyRightShift   = 344
	KeyRightControl = 345
	KeyRightAlt     = 346
	KeyRightSuper   = 347

	// KeyLast bounds the key state tables.
	KeyLast = 348
)

// Mouse buttons, also in GLFW numbering.
const (
	MouseLeft   = 0
	MouseRight  = 1
	MouseMiddle = 2
)

// PolledKeys are the keys the viewer reads each frame.
var PolledKeys = []int{
	KeySpace, KeyEscape, KeyEnter, KeyTab, KeyDelete, KeyBackspace,
	KeyLeftShift, KeyRightShift, KeyLeftControl, KeyRightControl,
	KeyLeftAlt, KeyRightAlt, KeyLeftSuper, KeyRightSuper,
	KeyW, KeyA, KeyS, KeyD, KeyQ, KeyE, KeyF, KeyG, KeyH, KeyR, KeyX, KeyZ, KeyY,
	KeyN, KeyO, Key1, Key2, Key3, Key4, Key5,
	KeyF1, KeyF2, KeyF3, KeyF4, KeyF5, KeyF12,
	KeyUp, KeyDown, KeyLeft, KeyRight, KeyHome,
}

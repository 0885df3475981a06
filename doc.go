// Package gazelle unifies heterogeneous VR input sources (gaze, hand-held
// controllers, mice, gamepads, wearable touchpads) behind one controller
// abstraction, drives themeable in-scene cursors, and dispatches
// pick/touch events against a 3D scene graph.
//
// # Core objects
//
// A [Registry] deduplicates raw platform device ids onto logical
// [Device] values and owns one [Controller] per device. Controllers
// buffer key/motion events thread-safely, cast a pick ray each update
// through their [Picker], and position their visual cursor according to a
// [CursorControl] policy.
//
// A [CursorManager] binds hot-pluggable devices to configured logical
// [Cursor] values by per-cursor priority, and bridges picker hits into
// the wireframe/intersect/pressed feedback of each object's [Selectable].
//
//	scene := gazelle.NewScene()
//	registry := gazelle.NewRegistry()
//
//	settings, err := gazelle.LoadSettingsFile("cursors.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	cursors, err := settings.BuildCursors()
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := gazelle.NewCursorManager(scene, registry, cursors)
//	settings.Apply(manager)
//
// Feed the registry from a platform source; on desktop, [EbitenDriver]
// polls [Ebitengine] input each frame:
//
//	driver := gazelle.NewEbitenDriver(registry)
//	manager.SetScanRequester(driver.RequestScan)
//
//	func (g *Game) Update() error {
//		driver.Poll()
//		for _, c := range registry.Controllers() {
//			c.Update()
//		}
//		return nil
//	}
//
// # Picking
//
// Scene objects become pickable by attaching a [Collider]
// ([SphereCollider], [BoxCollider], [MeshCollider]) and registering with
// [Scene.AddCollidable]. Each controller update diffs the hit set against
// the previous frame, producing enter, inside and exit events with a
// touch sub-state while the controller's button is held. Objects with an
// attached [Selectable] get visual feedback automatically; applications
// observe the same lifecycle through [CursorManager.AddEventListener].
//
// Cursor visual transitions use tweens (via [gween]); optional ECS
// integration (via the [Donburi] adapter in gazelle/ecs) publishes the
// same events to an entity store.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package gazelle

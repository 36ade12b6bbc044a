package window

import (
	"context"
	"fmt"

	"github.com/b0bbywan/go-portal-test/backend/portal"
	"github.com/b0bbywan/go-portal-test/backend/sound"
	"github.com/b0bbywan/go-portal-test/logger"
)

const (
	DEFAULT_WALLPAPER = "file:///usr/share/backgrounds/gnome/adwaita-morning.jpg"
	NOTIFICATION_ID   = "notification"
	ACK_ACTION        = "app.ack"
	ACCOUNT_REASON    = "Allows portal-test to test the Account portal."
	INHIBIT_REASON    = "Portal Testing"
)

// ToggleScreencast opts in or out of screen casting and refreshes the
// screencast label from the tracker.
func (c *Controller) ToggleScreencast(ctx context.Context, on bool) error {
	if c.Tracker == nil {
		return ErrUnavailable
	}
	err := c.Tracker.Toggle(ctx, on)
	c.labels.Set(LabelScreencast, c.Tracker.Summary())
	c.finish("screencast", err)
	return err
}

// InvalidateRestoreToken forgets the restore token of the tracker.
func (c *Controller) InvalidateRestoreToken() error {
	if c.Tracker == nil {
		return ErrUnavailable
	}
	err := c.Tracker.InvalidateRestoreToken()
	c.finish("screencast token", err)
	return err
}

func (c *Controller) TakeScreenshot(ctx context.Context, interactive bool) (*Image, error) {
	uri, err := c.portal.Screenshot(ctx, interactive)
	if err != nil {
		c.finish("screenshot", err)
		return nil, err
	}
	img, err := readImage(uri)
	if err == nil {
		c.mu.Lock()
		c.screenshot = img
		c.mu.Unlock()
	}
	c.finish("screenshot", err)
	return img, err
}

func (c *Controller) SetWallpaper(ctx context.Context, uri string) error {
	if uri == "" {
		uri = DEFAULT_WALLPAPER
	}
	err := c.portal.SetWallpaper(ctx, portal.WallpaperOptions{
		URI:         uri,
		ShowPreview: true,
		SetOn:       portal.WallpaperBackground,
	})
	if err == nil {
		logger.Info("[window] wallpaper request successful")
	}
	c.finish("wallpaper", err)
	return err
}

func (c *Controller) ComposeEmail(ctx context.Context) error {
	err := c.portal.ComposeEmail(ctx, portal.EmailOptions{
		Addresses: []string{"recipes-list@gnome.org"},
		Cc:        []string{"mclasen@redhat.com", "dead@email.com"},
		Subject:   "Test subject",
		Body:      "Test body",
	})
	if err == nil {
		logger.Info("[window] email sent")
	}
	c.finish("email", err)
	return err
}

func (c *Controller) RequestBackground(ctx context.Context) (portal.BackgroundResult, error) {
	res, err := c.portal.RequestBackground(ctx, portal.BackgroundOptions{
		Reason:      "Test reason",
		Autostart:   true,
		Commandline: []string{"/bin/true"},
	})
	if err == nil {
		logger.Info("[window] background request successful (background=%v, autostart=%v)", res.Background, res.Autostart)
	}
	c.finish("background", err)
	return res, err
}

// GetUserInformation fills the account labels. A photo that cannot be
// read is logged and left out.
func (c *Controller) GetUserInformation(ctx context.Context) (portal.UserInformation, error) {
	info, err := c.portal.GetUserInformation(ctx, ACCOUNT_REASON)
	if err != nil {
		c.finish("account", err)
		return info, err
	}

	c.labels.Set(LabelUsername, info.ID)
	c.labels.Set(LabelRealname, info.Name)

	var photo *Image
	if info.Image != "" {
		if photo, err = readImage(info.Image); err != nil {
			logger.Warn("[window] failed to load photo: %v", err)
		}
	}
	c.mu.Lock()
	c.photo = photo
	c.mu.Unlock()

	c.finish("account", nil)
	return info, nil
}

// OpenLocal hands the local test file, or its directory, to OpenURI.
func (c *Controller) OpenLocal(ctx context.Context, directory, ask bool) error {
	path, err := c.testFile()
	if err != nil {
		c.finish("open", err)
		return err
	}
	logger.Info("[window] opening '%s'", fileURI(path))
	err = c.portal.OpenFile(ctx, path, directory, ask)
	c.finish("open", err)
	return err
}

// OpenURI opens a remote URI.
func (c *Controller) OpenURI(ctx context.Context, uri string, ask bool) error {
	err := c.portal.OpenURI(ctx, uri, ask)
	c.finish("open", err)
	return err
}

// Save runs the save dialog, writes the test content to the chosen file
// with method and renders the chosen encoding.
func (c *Controller) Save(ctx context.Context, method SaveMethod) error {
	switch method {
	case SaveAtomically, SaveDirect, SaveNone:
	default:
		return fmt.Errorf("unknown save method %q", method)
	}

	res, err := c.portal.SaveFile(ctx, portal.SaveOptions{
		Title:   "File Chooser Portal",
		Choices: saveChoices(),
	})
	if err != nil {
		c.finish("save", err)
		return err
	}

	c.labels.Set(LabelEncoding, encodingLabel(res.Choices))
	if len(res.URIs) == 0 {
		c.finish("save", nil)
		return nil
	}

	path, err := pathFromURI(res.URIs[0])
	if err != nil {
		err = &IOError{Op: "write", Path: res.URIs[0], Err: err}
	} else {
		logger.Info("[window] saving file: '%s'", path)
		err = writeTestFile(method, path, res.Choices[CHOICE_ENCODING])
	}
	c.finish("save", err)
	return err
}

// SetInhibit replaces the current inhibition with one for flags. Zero
// flags only releases. On failure nothing stays inhibited.
func (c *Controller) SetInhibit(ctx context.Context, flags portal.InhibitFlags) error {
	c.mu.Lock()
	if flags == c.inhibitFlags {
		c.mu.Unlock()
		return nil
	}
	old := c.inhibition
	c.inhibition = nil
	c.inhibitFlags = flags
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}
	if flags == 0 {
		c.finish("inhibit", nil)
		return nil
	}

	in, err := c.portal.Inhibit(ctx, flags, INHIBIT_REASON)
	c.mu.Lock()
	switch {
	case err != nil:
		if c.inhibitFlags == flags {
			c.inhibitFlags = 0
		}
	case c.inhibitFlags != flags:
		// superseded while the dialog was open
		c.mu.Unlock()
		in.Release()
		c.finish("inhibit", nil)
		return nil
	default:
		c.inhibition = in
		go c.watchInhibition(in)
	}
	c.mu.Unlock()

	if err == nil {
		logger.Info("[window] inhibiting %s", flags)
	}
	c.finish("inhibit", err)
	return err
}

func (c *Controller) watchInhibition(in Inhibition) {
	select {
	case <-c.ctx.Done():
		return
	case <-in.Done():
	}
	c.mu.Lock()
	if c.inhibition != in {
		c.mu.Unlock()
		return
	}
	c.inhibition = nil
	c.inhibitFlags = 0
	c.mu.Unlock()
	logger.Info("[window] inhibition ended")
	c.finish("inhibit", nil)
}

// Notify posts the test notification. Its button activates the ack action.
func (c *Controller) Notify(ctx context.Context) error {
	c.mu.Lock()
	c.acked = false
	c.mu.Unlock()

	err := c.portal.AddNotification(ctx, portal.Notification{
		ID:    NOTIFICATION_ID,
		Title: "Notify me",
		Body:  "Really important information would ordinarily appear here",
		Buttons: []portal.NotificationButton{
			{Label: "Yup", Action: ACK_ACTION},
		},
	})
	c.finish("notification", err)
	return err
}

// Ack marks the notification as acknowledged.
func (c *Controller) Ack() {
	c.mu.Lock()
	c.acked = true
	c.mu.Unlock()
	logger.Info("[window] notification acknowledged")
	c.finish("ack", nil)
	if err := c.portal.RemoveNotification(c.ctx, NOTIFICATION_ID); err != nil {
		logger.Debug("[window] failed to withdraw notification: %v", err)
	}
}

func (c *Controller) PlaySound(ctx context.Context) (sound.Report, error) {
	if c.sound == nil {
		return sound.Report{}, ErrUnavailable
	}
	report, err := c.sound.Play(ctx)
	c.mu.Lock()
	c.soundReport = &report
	c.mu.Unlock()
	c.finish("sound", err)
	return report, err
}

// InstallUpdate asks the update monitor to install. Progress arrives
// through update.progress events.
func (c *Controller) InstallUpdate(ctx context.Context) error {
	if c.updates == nil {
		return ErrUnavailable
	}
	previous, _ := c.labels.Get(LabelUpdate)
	c.labels.Set(LabelUpdate, "Installing…")
	err := c.updates.Install(ctx)
	if err != nil {
		c.labels.Set(LabelUpdate, previous)
	}
	c.finish("update", err)
	return err
}

// Restart starts the latest installed version, which replaces this one.
func (c *Controller) Restart(ctx context.Context) error {
	if c.updates == nil {
		return ErrUnavailable
	}
	_, err := c.updates.Restart(ctx)
	c.finish("restart", err)
	return err
}

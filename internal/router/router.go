package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"foodgram/internal/config"
	"foodgram/internal/handlers"
	"foodgram/internal/logger"
	"foodgram/internal/middleware"
	"foodgram/internal/services"
	"foodgram/internal/storage"
)

const sessionName = "foodgram_session"

// Deps 路由依赖，全部由 main 组装后注入
type Deps struct {
	Config        *config.Config
	Log           *logger.Logger
	Registry      *prometheus.Registry
	Media         *storage.LocalStore
	Users         *services.UserService
	Subscriptions *services.SubscriptionService
	Catalog       *services.CatalogService
	Recipes       *services.RecipeService
	Favorites     *services.MarkService
	Cart          *services.MarkService
	Shopping      *services.ShoppingService
	Links         *services.ShortLinkService
}

// New 创建带全部中间件的 gin 引擎并注册路由
func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.NewMetrics(d.Registry).Handler())
	r.Use(middleware.CORS(d.Config.Origins()))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", "/media/"})))

	secret := d.Config.SessionSecret
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   d.Config.IsProduction(),
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(middleware.LoadUser(d.Users))

	r.HTMLRender = handlers.NewRenderer()

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	present := handlers.NewPresenter(d.Media, d.Favorites, d.Cart, d.Subscriptions)
	pager := handlers.NewPager(d.Config.SiteURL, d.Config.PageSize)
	authHandler := handlers.NewAuthHandler(d.Users, present, d.Log)
	userHandler := handlers.NewUserHandler(d.Users, d.Subscriptions, present, pager, d.Log)
	catalogHandler := handlers.NewCatalogHandler(d.Catalog, d.Log)
	recipeHandler := handlers.NewRecipeHandler(handlers.RecipeHandlerDeps{
		Recipes:   d.Recipes,
		Favorites: d.Favorites,
		Cart:      d.Cart,
		Shopping:  d.Shopping,
		Links:     d.Links,
		Present:   present,
		Pager:     pager,
		SiteURL:   d.Config.SiteURL,
		Log:       d.Log,
	})

	// 基础设施 (Infra)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))) // Prometheus 指标
	r.Static("/media", d.Media.Root())                                                    // 上传的图片
	r.GET("/s/:code", recipeHandler.ShortRedirect)                                        // 短链接跳转

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.POST("/users/", userHandler.Register)                  // 注册
	api.GET("/users/", userHandler.List)                       // 用户列表
	api.GET("/users/:id/", userHandler.Detail)                 // 用户详情
	api.POST("/auth/token/login/", authHandler.Login)          // 登录
	api.GET("/tags/", catalogHandler.ListTags)                 // 标签列表
	api.GET("/tags/:id/", catalogHandler.GetTag)               // 标签详情
	api.GET("/ingredients/", catalogHandler.ListIngredients)   // 食材搜索
	api.GET("/ingredients/:id/", catalogHandler.GetIngredient) // 食材详情
	api.GET("/recipes/", recipeHandler.List)                   // 菜谱列表
	api.GET("/recipes/:id/", recipeHandler.Detail)             // 菜谱详情
	api.GET("/recipes/:id/get-link/", recipeHandler.GetLink)   // 获取短链接

	// 受保护路由 (Protected Routes)
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/auth/token/logout/", authHandler.Logout)          // 退出登录
		authorized.GET("/users/me/", userHandler.Me)                        // 当前用户
		authorized.PUT("/users/me/avatar/", userHandler.SetAvatar)          // 上传头像
		authorized.DELETE("/users/me/avatar/", userHandler.DeleteAvatar)    // 删除头像
		authorized.POST("/users/set_password/", userHandler.SetPassword)    // 修改密码
		authorized.GET("/users/subscriptions/", userHandler.Subscriptions)  // 我的关注
		authorized.POST("/users/:id/subscribe/", userHandler.Subscribe)     // 关注作者
		authorized.DELETE("/users/:id/subscribe/", userHandler.Unsubscribe) // 取消关注

		authorized.POST("/recipes/", recipeHandler.Create)                             // 发布菜谱
		authorized.PATCH("/recipes/:id/", recipeHandler.Update)                        // 修改菜谱
		authorized.DELETE("/recipes/:id/", recipeHandler.Delete)                       // 删除菜谱
		authorized.POST("/recipes/:id/favorite/", recipeHandler.AddFavorite)           // 加入收藏
		authorized.DELETE("/recipes/:id/favorite/", recipeHandler.RemoveFavorite)      // 取消收藏
		authorized.POST("/recipes/:id/shopping_cart/", recipeHandler.AddToCart)        // 加入购物车
		authorized.DELETE("/recipes/:id/shopping_cart/", recipeHandler.RemoveFromCart) // 移出购物车
		authorized.GET("/recipes/download_shopping_cart/", recipeHandler.DownloadCart) // 下载购物清单
	}
}
